package model

import "gorm.io/plugin/soft_delete"

// A shared copy of one machine's deps log at one point in time.
type DepsSnapshot struct {
	ID int64 `json:"id" gorm:"default:0"`
	// Identity of the snapshot: hash over instance, log name and content hash.
	ParamsHash string `json:"params_hash" gorm:"index:idx_params_hash,unique"`
	// Logical name of the log, e.g. ".deps_log".
	LogName string `json:"log_name" gorm:"index:idx_log_name"`
	// Hash of the uploaded log bytes.
	ContentHash string `json:"content_hash" gorm:"index:idx_content_hash"`
	// Number of path records and deps records in the snapshot.
	PathCount int `json:"path_count"`
	DepsCount int `json:"deps_count"`
	// Live outputs captured alongside the snapshot.
	Files []*DepsFile `json:"files" gorm:"ForeignKey:SID;AssociationForeignKey:ID"`
	//
	Instance        string `json:"instance" gorm:"index:idx_instance"`
	CreatedAt       int64  `json:"created_at"`
	LastAccess      int64  `json:"last_access"`
	ExpiredDuration int64  `json:"expired_duration"`
	/* 0 false 1 true */
	Deleted soft_delete.DeletedAt `gorm:"softDelete:flag;default:0"`
}

func (DepsSnapshot) TableName() string {
	return "deps_snapshot"
}
