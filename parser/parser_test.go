package parser

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gzip "github.com/klauspost/compress/gzip"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHeader = "timestamp,username,department,src_ip,dst_ip,protocol,http_method," +
	"url,status_code,bytes_sent,bytes_received,action,url_category," +
	"threat_category,risk_score,user_agent"

const testRow = `2025-03-01 09:15:00,jsmith,Engineering,10.0.1.5,93.184.216.34,HTTPS,GET,` +
	`example.com/search?q=docs,200,431,10233,Allowed,Search,None,5,Mozilla/5.0`

func newTestParser() *FileParser {
	logger := log.New()
	logger.Out = ioutil.Discard
	return NewFileParser(time.UTC, logger)
}

func TestParseWellFormedRow(t *testing.T) {
	p := newTestParser()
	results, err := p.Parse("test.csv", strings.NewReader(testHeader+"\n"+testRow+"\n"))
	require.Nil(t, err)
	require.Len(t, results.Records, 1)
	assert.Equal(t, 0, results.Skipped)

	record := results.Records[0]
	assert.Equal(t, "jsmith", record.Username)
	assert.Equal(t, "10.0.1.5", record.SrcIP)
	assert.Equal(t, "example.com", record.Domain)
	assert.Equal(t, "/search?q=docs", record.Path)
	assert.Equal(t, int64(431), record.BytesSent)
	assert.Equal(t, 200, record.StatusCode)
	assert.Equal(t, time.Date(2025, 3, 1, 9, 15, 0, 0, time.UTC), record.Timestamp)
}

func TestParseSkipsMalformedRows(t *testing.T) {
	badRows := []string{
		`not-a-timestamp,jsmith,Eng,10.0.1.5,1.2.3.4,HTTPS,GET,example.com/,200,431,10,Allowed,Search,None,5,UA`,
		`2025-03-01 09:15:00,jsmith,Eng,10.0.1.5,1.2.3.4,HTTPS,GET,example.com/,banana,431,10,Allowed,Search,None,5,UA`,
		`2025-03-01 09:15:00,jsmith,Eng,,1.2.3.4,HTTPS,GET,example.com/,200,431,10,Allowed,Search,None,5,UA`,
	}
	input := testHeader + "\n" + testRow + "\n" + strings.Join(badRows, "\n") + "\n"

	p := newTestParser()
	results, err := p.Parse("test.csv", strings.NewReader(input))
	require.Nil(t, err)

	// one bad row must not abort parsing of the others
	assert.Len(t, results.Records, 1)
	assert.Equal(t, len(badRows), results.Skipped)
}

func TestParseMissingColumnsFatal(t *testing.T) {
	header := "timestamp,username,src_ip"
	p := newTestParser()
	_, err := p.Parse("test.csv", strings.NewReader(header+"\n"))
	require.NotNil(t, err)
	assert.True(t, IsInputError(err))
	assert.Contains(t, err.Error(), "missing required columns")
}

func TestParseMissingFileFatal(t *testing.T) {
	p := newTestParser()
	_, err := p.ParseFile("/nonexistent/proxy.csv")
	require.NotNil(t, err)
	assert.True(t, IsInputError(err))
}

func TestParsePreservesOrder(t *testing.T) {
	var builder strings.Builder
	builder.WriteString(testHeader + "\n")
	// rows deliberately out of timestamp order
	times := []string{"2025-03-01 12:00:00", "2025-03-01 09:00:00", "2025-03-01 10:30:00"}
	for _, ts := range times {
		builder.WriteString(ts + `,jsmith,Eng,10.0.1.5,1.2.3.4,HTTPS,GET,example.com/,200,431,10,Allowed,Search,None,5,UA` + "\n")
	}

	p := newTestParser()
	results, err := p.Parse("test.csv", strings.NewReader(builder.String()))
	require.Nil(t, err)
	require.Len(t, results.Records, 3)

	// file order is preserved; interval math sorts per session later
	assert.Equal(t, 12, results.Records[0].Timestamp.Hour())
	assert.Equal(t, 9, results.Records[1].Timestamp.Hour())
	assert.Equal(t, 10, results.Records[2].Timestamp.Hour())
}

func TestParseTimezoneNormalization(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.Nil(t, err)

	logger := log.New()
	logger.Out = ioutil.Discard
	p := NewFileParser(loc, logger)

	results, err := p.Parse("test.csv", strings.NewReader(testHeader+"\n"+testRow+"\n"))
	require.Nil(t, err)
	require.Len(t, results.Records, 1)
	assert.Equal(t, loc, results.Records[0].Timestamp.Location())
}

func TestParseGzipFile(t *testing.T) {
	var buf bytes.Buffer
	gzWriter := gzip.NewWriter(&buf)
	_, err := gzWriter.Write([]byte(testHeader + "\n" + testRow + "\n"))
	require.Nil(t, err)
	require.Nil(t, gzWriter.Close())

	path := filepath.Join(t.TempDir(), "proxy.csv.gz")
	require.Nil(t, ioutil.WriteFile(path, buf.Bytes(), 0644))

	p := newTestParser()
	results, err := p.ParseFile(path)
	require.Nil(t, err)
	require.Len(t, results.Records, 1)
	assert.Equal(t, "example.com", results.Records[0].Domain)
}

func TestSplitURL(t *testing.T) {
	domain, path := splitURL("evil-update.net/beacon")
	assert.Equal(t, "evil-update.net", domain)
	assert.Equal(t, "/beacon", path)

	domain, path = splitURL("example.com")
	assert.Equal(t, "example.com", domain)
	assert.Equal(t, "/", path)
}
