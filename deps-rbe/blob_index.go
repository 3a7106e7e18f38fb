package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// The blob index is a flat ledger of uploaded log files, kept separate
// from the gorm metadata so the download path can answer without
// touching the snapshot tables.
var (
	blobConn      *sqlite.Conn = nil
	stmtBlobAdd   *sqlite.Stmt = nil
	stmtBlobTouch *sqlite.Stmt = nil
	stmtBlobStat  *sqlite.Stmt = nil
)

func OpenBlobIndex(dbPath string) (err error) {
	needCreateTable := false
	if _, err1 := os.Stat(dbPath); errors.Is(err1, os.ErrNotExist) {
		needCreateTable = true
	} else if err1 != nil {
		err = err1
		return
	}
	flag := sqlite.OpenReadWrite
	if needCreateTable {
		flag |= sqlite.OpenCreate
	}
	blobConn, err = sqlite.OpenConn(dbPath, flag)
	if err != nil {
		return err
	}
	if needCreateTable {
		stmt, err := blobConn.Prepare("CREATE TABLE IF NOT EXISTS blob (`id` INTEGER PRIMARY KEY, " +
			"`params_hash` TEXT, `size` INTEGER, `created_at` INTEGER, `last_access` INTEGER," +
			" UNIQUE (`params_hash`) ON CONFLICT REPLACE " +
			");")
		if err != nil {
			return err
		}
		if _, err := stmt.Step(); err != nil {
			return err
		}
	}
	stmtBlobAdd, err = blobConn.Prepare("INSERT INTO blob (`params_hash`, `size`, `created_at`, `last_access`) VALUES" +
		" ($params_hash, $size, $created_at, $last_access);")
	if err != nil {
		return err
	}
	stmtBlobTouch, err = blobConn.Prepare("UPDATE blob SET `last_access` = $last_access WHERE `params_hash` = $params_hash;")
	if err != nil {
		return err
	}
	stmtBlobStat, err = blobConn.Prepare("SELECT count(*), coalesce(sum(`size`), 0) FROM blob;")
	if err != nil {
		return err
	}
	return
}

func CloseBlobIndex() (err error) {
	if blobConn == nil {
		return nil
	}
	err = blobConn.Close()
	return
}

func RecordBlob(paramsHash string, size int64) error {
	defer stmtBlobAdd.Reset()
	now := time.Now().Unix()
	stmtBlobAdd.SetText("$params_hash", paramsHash)
	stmtBlobAdd.SetInt64("$size", size)
	stmtBlobAdd.SetInt64("$created_at", now)
	stmtBlobAdd.SetInt64("$last_access", now)
	_, err := stmtBlobAdd.Step()
	if err != nil {
		return err
	}
	return nil
}

func TouchBlob(paramsHash string) error {
	defer stmtBlobTouch.Reset()
	stmtBlobTouch.SetText("$params_hash", paramsHash)
	stmtBlobTouch.SetInt64("$last_access", time.Now().Unix())
	_, err := stmtBlobTouch.Step()
	if err != nil {
		return err
	}
	return nil
}

// Count of stored blobs and their combined size.
func BlobIndexStats() (int64, int64, error) {
	defer stmtBlobStat.Reset()
	if hasRow, err := stmtBlobStat.Step(); err != nil {
		return 0, 0, err
	} else if !hasRow {
		return 0, 0, nil
	}
	return stmtBlobStat.ColumnInt64(0), stmtBlobStat.ColumnInt64(1), nil
}

func PurgeBlobs(paramsHashes []string) error {
	if len(paramsHashes) == 0 {
		return nil
	}
	var quoted []string
	for _, h := range paramsHashes {
		quoted = append(quoted, strconv.Quote(h))
	}
	query := fmt.Sprintf("DELETE FROM blob WHERE `params_hash` in (%s);", strings.Join(quoted, ","))
	err := sqlitex.ExecuteTransient(blobConn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			return nil
		},
	})
	if err != nil {
		return err
	}
	return nil
}
