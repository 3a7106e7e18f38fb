package main

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/tevino/abool/v2"
)

var cleanRunning = abool.NewBool(false)

// Drops snapshots nobody pulled within their expiry window, together
// with their stored log files and blob index rows.
func cleanTask() {
	if cleanRunning.IsSet() {
		return
	}
	cleanRunning.Set()
	defer cleanRunning.UnSet()
	expired, err := FindExpiredSnapshotsWithLimit(2000)
	if err != nil {
		logrus.WithError(err).Warn("find expired snapshots")
		return
	}
	if len(expired) == 0 {
		return
	}
	var cleanedIds []int64
	var cleanedHashes []string
	for _, snapshot := range expired {
		blobPath := filepath.Join(fsRootDir, snapshot.ParamsHash)
		if err := os.RemoveAll(blobPath); err != nil {
			logrus.WithError(err).Warn("remove blob")
			continue
		}
		cleanedIds = append(cleanedIds, snapshot.ID)
		cleanedHashes = append(cleanedHashes, snapshot.ParamsHash)
	}
	if len(cleanedIds) == 0 {
		return
	}
	if err := MarkSnapshotsCleaned(cleanedIds); err != nil {
		logrus.WithError(err).Warn("mark snapshots cleaned")
	}
	if err := PurgeBlobs(cleanedHashes); err != nil {
		logrus.WithError(err).Warn("purge blob index")
	}
	logrus.WithField("count", len(cleanedIds)).Info("cleaned expired snapshots")
}
