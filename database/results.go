package database

import (
	"time"

	"github.com/globalsign/mgo"
	"github.com/globalsign/mgo/bson"
)

type (
	//RunRecord summarizes one stored analysis run
	RunRecord struct {
		RunID        string    `bson:"run_id"`
		InputPath    string    `bson:"input_path"`
		StartedAt    time.Time `bson:"started_at"`
		StoredAt     time.Time `bson:"stored_at"`
		ElapsedMS    int64     `bson:"elapsed_ms"`
		TotalLogs    int       `bson:"total_logs"`
		SkippedRows  int       `bson:"skipped_rows"`
		SessionCount int       `bson:"session_count"`
		Tier1Flagged int       `bson:"tier1_flagged"`
		Tier2Flagged int       `bson:"tier2_flagged"`
		AlertCount   int       `bson:"alert_count"`
		Warnings     []string  `bson:"warnings,omitempty"`
	}

	//AlertRecord stores one ranked anomaly tied back to its run. The
	//record is flattened for indexing rather than nesting the
	//pipeline's result types.
	AlertRecord struct {
		RunID    string    `bson:"run_id"`
		StoredAt time.Time `bson:"stored_at"`
		Rank     int       `bson:"rank"`

		Actor        string  `bson:"actor"`
		Domain       string  `bson:"domain"`
		Username     string  `bson:"username"`
		RequestCount int     `bson:"request_count"`
		Tier1Fired   bool    `bson:"tier1_fired"`
		Tier2Fired   bool    `bson:"tier2_fired"`
		Confidence   float64 `bson:"confidence"`
		Severity     string  `bson:"severity"`

		Methods     []string `bson:"methods_fired,omitempty"`
		TopFeatures []string `bson:"top_features,omitempty"`

		ThreatSummary     string `bson:"threat_summary,omitempty"`
		WhatHappened      string `bson:"what_happened,omitempty"`
		WhySuspicious     string `bson:"why_suspicious,omitempty"`
		RecommendedAction string `bson:"recommended_action,omitempty"`
	}
)

//StoreRun persists a run summary and its ranked alert queue
func (d *DB) StoreRun(run RunRecord, alerts []AlertRecord) error {
	if err := d.ensureResultCollections(); err != nil {
		return err
	}

	session := d.Session.Copy()
	defer session.Close()

	metaDB := session.DB(d.conf.S.MongoDB.MetaDB)
	storedAt := time.Now().UTC()

	run.StoredAt = storedAt
	run.AlertCount = len(alerts)
	if err := metaDB.C(d.conf.T.Runs.RunsTable).Insert(run); err != nil {
		return err
	}

	alertColl := metaDB.C(d.conf.T.Alert.AlertsTable)
	for i := range alerts {
		alerts[i].StoredAt = storedAt
		if err := alertColl.Insert(alerts[i]); err != nil {
			return err
		}
	}

	d.log.WithField("run_id", run.RunID).Info("run stored")
	return nil
}

//ReadAlerts returns stored alerts ranked by confidence. An empty
//runID reads across all runs; limit <= 0 reads everything.
func (d *DB) ReadAlerts(runID string, limit int) ([]AlertRecord, error) {
	session := d.Session.Copy()
	defer session.Close()

	selector := bson.M{}
	if runID != "" {
		selector["run_id"] = runID
	}

	query := session.DB(d.conf.S.MongoDB.MetaDB).
		C(d.conf.T.Alert.AlertsTable).
		Find(selector).
		Sort("-confidence", "-stored_at", "rank")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var alerts []AlertRecord
	err := query.All(&alerts)
	return alerts, err
}

//LatestRun returns the most recently stored run summary
func (d *DB) LatestRun() (*RunRecord, error) {
	session := d.Session.Copy()
	defer session.Close()

	var record RunRecord
	err := session.DB(d.conf.S.MongoDB.MetaDB).
		C(d.conf.T.Runs.RunsTable).
		Find(nil).
		Sort("-stored_at").
		One(&record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (d *DB) ensureResultCollections() error {
	err := d.CreateCollection(d.conf.T.Runs.RunsTable, []mgo.Index{
		{Key: []string{"run_id"}, Unique: true},
		{Key: []string{"-stored_at"}},
	})
	if err != nil {
		return err
	}
	return d.CreateCollection(d.conf.T.Alert.AlertsTable, []mgo.Index{
		{Key: []string{"run_id"}},
		{Key: []string{"-confidence"}},
		{Key: []string{"actor", "domain"}},
	})
}
