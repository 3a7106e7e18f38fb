package main

import (
	"time"

	"deps-log-go/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func SaveSnapshot(snapshot *model.DepsSnapshot) error {
	err := DB.Transaction(func(tx *gorm.DB) error {
		files := snapshot.Files
		snapshot.Files = nil
		if err := tx.Create(&snapshot).Error; err != nil {
			return errors.Wrap(err, "create snapshot")
		}
		if len(files) == 0 {
			return nil
		}
		sid := snapshot.ID
		for i := range files {
			files[i].SID = sid
		}
		if err := tx.Create(&files).Error; err != nil {
			return errors.Wrap(err, "create snapshot files")
		}
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}

func CheckSnapshotExist(params_hash string) (bool, error) {
	var cnt int64 = 0
	if err := DB.Model(&model.DepsSnapshot{}).Select("count(*)").
		Where("`params_hash`=?", params_hash).
		Count(&cnt).Error; err != nil {
		return false, errors.Wrap(err, "count snapshots")
	}
	return cnt > 0, nil
}

func UpdateSnapshotAccess(paramsHash string) error {
	now := time.Now()
	if err := DB.Unscoped().Model(&model.DepsSnapshot{}).Where("`params_hash`=?", paramsHash).
		Update("last_access", now.Unix()).Error; err != nil {
		return errors.Wrap(err, "update last_access")
	}
	return nil
}

// Newest snapshots first, capped at five.  No match is an empty list,
// not an error; clients decide what that means.
func FindSnapshots(instance, logName string) ([]*model.DepsSnapshot, error) {
	items := make([]*model.DepsSnapshot, 0)
	if err := DB.Model(&model.DepsSnapshot{}).
		Where("`log_name`=? and `instance`=?", logName, instance).
		Order("created_at desc").
		Limit(5).Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "find snapshots")
	}
	return items, nil
}

func FindSnapshotFiles(sid int64) ([]*model.DepsFile, error) {
	files := make([]*model.DepsFile, 0)
	if err := DB.Where("sid = ?", sid).Find(&files).Error; err != nil {
		return nil, errors.Wrap(err, "find snapshot files")
	}
	return files, nil
}

func FindExpiredSnapshotsWithLimit(limit int) ([]*model.DepsSnapshot, error) {
	var expired []*model.DepsSnapshot
	now := time.Now().Unix()
	if err := DB.Model(&model.DepsSnapshot{}).Where("`last_access`+`expired_duration` < ?", now).
		Limit(limit).Find(&expired).Error; err != nil {
		return nil, errors.Wrap(err, "find expired snapshots")
	}
	return expired, nil
}

func MarkSnapshotsCleaned(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := DB.Model(&model.DepsSnapshot{}).Delete(&model.DepsSnapshot{}, ids).Error; err != nil {
		return errors.Wrap(err, "soft delete snapshots")
	}
	return nil
}
