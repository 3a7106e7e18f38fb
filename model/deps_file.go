package model

import "gorm.io/plugin/soft_delete"

// One live output recorded in a snapshot.
type DepsFile struct {
	ID int64 `gorm:"primarykey"`
	// Output path as recorded in the log.
	FilePath string `json:"file_path"`
	// Content digest of the output on the uploading machine.
	FileHash string `json:"file_hash"`
	// Snapshot this output belongs to.
	SID int64 `json:"sid" gorm:"column:sid;index:idx_sid"`
	/* 0 false 1 true */
	Deleted soft_delete.DeletedAt `gorm:"softDelete:flag;default:0"`
}

func (DepsFile) TableName() string {
	return "deps_file"
}
