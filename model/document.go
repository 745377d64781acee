package model

// DocumentDescriptor identifies one file or folder picked from the external
// drive. LastEditedUtc is the drive's modifiedTime in epoch milliseconds and
// acts as the version marker for last-writer-wins reconciliation.
type DocumentDescriptor struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	LastEditedUtc int64  `json:"lastEditedUtc"`
	IsFolder      bool   `json:"isFolder"`
}
