package datagen

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/soteria-soc/soteria/util"
)

var logHeader = []string{
	"timestamp", "username", "department", "src_ip", "dst_ip",
	"protocol", "http_method", "url", "status_code",
	"bytes_sent", "bytes_received", "action", "url_category",
	"threat_category", "risk_score", "user_agent",
}

var groundTruthHeader = []string{
	"timestamp", "username", "src_ip", "url", "anomaly_type",
}

//WriteCSV exports entries as a proxy log file readable by the parser.
//Anomaly metadata is deliberately stripped out.
func WriteCSV(path string, entries []Entry) error {
	file, err := createFile(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(logHeader); err != nil {
		return err
	}
	for _, entry := range entries {
		row := []string{
			entry.Timestamp.Format(util.ProxyTimeFormat),
			entry.Username,
			entry.Department,
			entry.SrcIP,
			entry.DstIP,
			entry.Protocol,
			entry.Method,
			entry.URL,
			strconv.Itoa(entry.StatusCode),
			strconv.Itoa(entry.BytesSent),
			strconv.Itoa(entry.BytesReceived),
			entry.Action,
			entry.URLCategory,
			entry.ThreatCategory,
			strconv.Itoa(entry.RiskScore),
			entry.UserAgent,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

//WriteGroundTruth exports only the injected anomalies with their
//labels, for measuring detection recall against a generated log
func WriteGroundTruth(path string, entries []Entry) error {
	file, err := createFile(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(groundTruthHeader); err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.Anomaly {
			continue
		}
		row := []string{
			entry.Timestamp.Format(util.ProxyTimeFormat),
			entry.Username,
			entry.SrcIP,
			entry.URL,
			entry.AnomalyType,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}
