package util

//TimeFormat stores a correctly formatted timestamp
const TimeFormat string = "2006-01-02-T15:04:05-0700"

//ProxyTimeFormat is the timestamp layout used in proxy log exports
const ProxyTimeFormat string = "2006-01-02 15:04:05"
