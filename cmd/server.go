package cmd

import (
	"DriveFM/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动DriveFM服务器",
	Long:  `启动DriveFM音乐库的HTTP服务器，提供同步、浏览、歌单和播放API`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
