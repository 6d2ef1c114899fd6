package parser

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	gzip "github.com/klauspost/compress/gzip"
	log "github.com/sirupsen/logrus"
	"github.com/soteria-soc/soteria/parser/parsetypes"
	"github.com/soteria-soc/soteria/util"
)

//requiredColumns lists the columns which must be present in the header
//of a proxy log export. A header missing any of these is fatal.
var requiredColumns = []string{
	"timestamp", "username", "department", "src_ip", "dst_ip",
	"protocol", "http_method", "url", "status_code",
	"bytes_sent", "bytes_received", "action", "url_category",
	"threat_category", "risk_score", "user_agent",
}

//Results holds the outcome of parsing one log file
type Results struct {
	Records []parsetypes.ProxyConn
	Skipped int
}

//FileParser parses delimited proxy log exports into ProxyConn records
type FileParser struct {
	location *time.Location
	log      *log.Logger
}

//NewFileParser creates a parser which normalizes timestamps into the
//given business hours location
func NewFileParser(location *time.Location, logger *log.Logger) *FileParser {
	return &FileParser{
		location: location,
		log:      logger,
	}
}

//ParseFile reads a proxy log file (optionally gzip compressed) into
//memory. Rows which fail to parse are skipped and counted; a missing or
//malformed header aborts the parse with an InputError.
func (p *FileParser) ParseFile(path string) (*Results, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &InputError{Path: path, Reason: err.Error()}
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		gzReader, err := gzip.NewReader(file)
		if err != nil {
			return nil, &InputError{Path: path, Reason: "could not read gzip stream: " + err.Error()}
		}
		defer gzReader.Close()
		reader = gzReader
	}

	return p.Parse(path, reader)
}

//Parse reads proxy log records from an open stream
func (p *FileParser) Parse(path string, reader io.Reader) (*Results, error) {
	start := time.Now()

	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1

	header, err := csvReader.Read()
	if err != nil {
		return nil, &InputError{Path: path, Reason: "could not read header: " + err.Error()}
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &InputError{
			Path:   path,
			Reason: "missing required columns: " + strings.Join(missing, ", "),
		}
	}

	results := &Results{}
	for {
		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			results.Skipped++
			continue
		}

		record, ok := p.parseRow(row, columns)
		if !ok {
			results.Skipped++
			continue
		}
		results.Records = append(results.Records, record)
	}

	p.log.WithFields(log.Fields{
		"path":    path,
		"records": len(results.Records),
		"skipped": results.Skipped,
		"elapsed": time.Since(start).String(),
	}).Info("parsed proxy log")

	return results, nil
}

//parseRow converts one csv row into a ProxyConn. Any unparsable field
//invalidates the row.
func (p *FileParser) parseRow(row []string, columns map[string]int) (parsetypes.ProxyConn, bool) {
	var record parsetypes.ProxyConn

	field := func(name string) (string, bool) {
		idx := columns[name]
		if idx >= len(row) {
			return "", false
		}
		return row[idx], true
	}

	rawTs, ok := field("timestamp")
	if !ok {
		return record, false
	}
	ts, err := time.ParseInLocation(util.ProxyTimeFormat, rawTs, p.location)
	if err != nil {
		return record, false
	}

	rawURL, ok := field("url")
	if !ok || rawURL == "" {
		return record, false
	}
	domain, urlPath := splitURL(rawURL)

	statusCode, err1 := atoiField(field("status_code"))
	bytesSent, err2 := atoi64Field(field("bytes_sent"))
	bytesReceived, err3 := atoi64Field(field("bytes_received"))
	riskScore, err4 := atoiField(field("risk_score"))
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return record, false
	}

	record.Timestamp = ts
	record.Username, _ = field("username")
	record.Department, _ = field("department")
	record.SrcIP, _ = field("src_ip")
	record.DstIP, _ = field("dst_ip")
	record.Protocol, _ = field("protocol")
	record.Method, _ = field("http_method")
	record.Domain = domain
	record.Path = urlPath
	record.StatusCode = statusCode
	record.BytesSent = bytesSent
	record.BytesReceived = bytesReceived
	record.Action, _ = field("action")
	record.URLCategory, _ = field("url_category")
	record.ThreatCategory, _ = field("threat_category")
	record.RiskScore = riskScore
	record.UserAgent, _ = field("user_agent")

	if record.SrcIP == "" {
		return record, false
	}
	return record, true
}

//splitURL separates a proxy log url into its destination domain and path
func splitURL(rawURL string) (string, string) {
	if idx := strings.Index(rawURL, "/"); idx >= 0 {
		return rawURL[:idx], rawURL[idx:]
	}
	return rawURL, "/"
}

func atoiField(value string, ok bool) (int, error) {
	if !ok {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(strings.TrimSpace(value))
}

func atoi64Field(value string, ok bool) (int64, error) {
	if !ok {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
}
