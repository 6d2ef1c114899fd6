package parsetypes

import (
	"time"
)

//ProxyConn records a single proxied web transaction. Immutable once
//parsed; the rest of the pipeline only ever reads these.
type ProxyConn struct {
	// Identity
	Timestamp  time.Time `bson:"ts" json:"ts"`
	Username   string    `bson:"username" json:"username"`
	Department string    `bson:"department" json:"department"`
	SrcIP      string    `bson:"src_ip" json:"src_ip"`
	DstIP      string    `bson:"dst_ip" json:"dst_ip"`

	// Request
	Protocol string `bson:"protocol" json:"protocol"`
	Method   string `bson:"http_method" json:"http_method"`
	Domain   string `bson:"domain" json:"domain"`
	Path     string `bson:"path" json:"path"`

	// Response
	StatusCode    int   `bson:"status_code" json:"status_code"`
	BytesSent     int64 `bson:"bytes_sent" json:"bytes_sent"`
	BytesReceived int64 `bson:"bytes_received" json:"bytes_received"`

	// Classification
	Action         string `bson:"action" json:"action"`
	URLCategory    string `bson:"url_category" json:"url_category"`
	ThreatCategory string `bson:"threat_category" json:"threat_category"`
	RiskScore      int    `bson:"risk_score" json:"risk_score"`
	UserAgent      string `bson:"user_agent" json:"user_agent"`
}
