package repository

import (
	"context"
	"errors"
	"fmt"

	"DriveFM/core/events"
	"DriveFM/model"

	"gorm.io/gorm"
)

// ErrDuplicateAlbumName is returned when a create or rename would collide
// with an existing smart playlist name. The check runs before any mutation,
// so a rejected call leaves the album list untouched.
var ErrDuplicateAlbumName = errors.New("album name already exists")

// AlbumRepository 智能歌单数据访问接口
type AlbumRepository interface {
	Create(ctx context.Context, album *model.Album) error
	Update(ctx context.Context, album *model.Album) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*model.Album, error)
	All(ctx context.Context) ([]*model.Album, error)
}

// gormAlbumRepository GORM 实现
type gormAlbumRepository struct {
	db  *gorm.DB
	bus *events.Bus
}

// NewGormAlbumRepository 创建 GORM 歌单仓库
func NewGormAlbumRepository(db *gorm.DB, bus *events.Bus) AlbumRepository {
	return &gormAlbumRepository{db: db, bus: bus}
}

// Create 创建歌单，重名直接拒绝
func (r *gormAlbumRepository) Create(ctx context.Context, album *model.Album) error {
	if err := album.Validate(); err != nil {
		return err
	}

	taken, err := r.nameTaken(ctx, album.Name, 0)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateAlbumName
	}

	if err := r.db.WithContext(ctx).Create(album).Error; err != nil {
		return fmt.Errorf("failed to create album: %w", err)
	}
	r.publishChange()
	return nil
}

// Update 更新歌单，重命名成已存在的名字同样拒绝
func (r *gormAlbumRepository) Update(ctx context.Context, album *model.Album) error {
	if err := album.Validate(); err != nil {
		return err
	}

	taken, err := r.nameTaken(ctx, album.Name, album.ID)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateAlbumName
	}

	if err := r.db.WithContext(ctx).Save(album).Error; err != nil {
		return fmt.Errorf("failed to update album: %w", err)
	}
	r.publishChange()
	return nil
}

// Delete 删除歌单
func (r *gormAlbumRepository) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&model.Album{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete album %d: %w", id, err)
	}
	r.publishChange()
	return nil
}

// GetByID 根据ID获取歌单
func (r *gormAlbumRepository) GetByID(ctx context.Context, id int64) (*model.Album, error) {
	var album model.Album
	err := r.db.WithContext(ctx).First(&album, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get album %d: %w", id, err)
	}
	return &album, nil
}

// All 获取全部歌单，按名称排序
func (r *gormAlbumRepository) All(ctx context.Context) ([]*model.Album, error) {
	var albums []*model.Album
	if err := r.db.WithContext(ctx).Order("name").Find(&albums).Error; err != nil {
		return nil, fmt.Errorf("failed to list albums: %w", err)
	}
	return albums, nil
}

// nameTaken reports whether another album (excluding excludeID) already
// uses this name.
func (r *gormAlbumRepository) nameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Album{}).
		Where("name = ? AND id <> ?", name, excludeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check album name: %w", err)
	}
	return count > 0, nil
}

func (r *gormAlbumRepository) publishChange() {
	if r.bus != nil {
		r.bus.Publish(events.Event{Type: events.AlbumsChanged})
	}
}
