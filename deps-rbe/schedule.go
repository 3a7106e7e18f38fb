package main

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

var cleanScheduler gocron.Scheduler

func StartExpiredCleanSchedule() {
	var err error
	cleanScheduler, err = gocron.NewScheduler()
	if err != nil {
		panic(err)
	}
	job, err := cleanScheduler.NewJob(gocron.DurationJob(5*time.Minute), gocron.NewTask(cleanTask))
	if err != nil {
		panic(err)
	}
	// each job has a unique id
	logrus.WithField("job", job.ID()).Info("scheduled expired snapshot cleaner")
	cleanScheduler.Start()
}

func StopScheduler() {
	if cleanScheduler == nil {
		return
	}
	if err := cleanScheduler.Shutdown(); err != nil {
		logrus.WithError(err).Warn("scheduler shutdown")
	}
}
