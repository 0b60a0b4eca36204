package ingestor

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/GabrielNunesIT/discordlog/internal/model"
)

var (
	// "Mmm dd hh:mm:ss host tag[pid]: msg"
	rfc3164Header = regexp.MustCompile(`^\w{3}\s+\d+\s+\d+:\d+:\d+\s+(\S+)\s+([^\s\[:]+)(?:\[\d+\])?:\s*(.*)$`)

	// "1 TIMESTAMP HOST APP PROCID MSGID SD [MSG]"
	rfc5424Header = regexp.MustCompile(`(?s)^1 (\S+) (\S+) (\S+) (\S+) (\S+) (-|(?:\[(?:[^\]\\]|\\.)*\])+)(?: (.*))?$`)
)

var facilityNames = []string{
	"kern", "user", "mail", "daemon", "auth", "syslog", "lpr", "news",
	"uucp", "cron", "authpriv", "ftp", "ntp", "audit", "alert", "clock",
	"local0", "local1", "local2", "local3", "local4", "local5", "local6", "local7",
}

var severityNames = []string{
	"emerg", "alert", "crit", "err", "warning", "notice", "info", "debug",
}

// parseSyslogHeader decodes the priority and, when present, the RFC 5424 or
// RFC 3164 header. The severity picks the Discord level, the app or tag
// names the logger, and the sender's hostname and timestamp are kept.
func parseSyslogHeader(entry *model.LogEntry) {
	raw := string(entry.Raw)
	if len(raw) == 0 || raw[0] != '<' {
		return
	}

	end := strings.IndexByte(raw, '>')
	if end < 2 || end > 4 {
		return
	}
	priority, err := strconv.Atoi(raw[1:end])
	if err != nil || priority < 0 || priority > 191 {
		return
	}

	severity := priority % 8
	entry.Parsed["syslog_severity"] = severity
	entry.Parsed["syslog_severity_name"] = severityNames[severity]
	entry.Metadata["facility"] = facilityNames[priority/8]

	rest := raw[end+1:]
	if m := rfc5424Header.FindStringSubmatch(rest); m != nil {
		if m[1] != "-" {
			entry.Parsed["timestamp"] = m[1]
		}
		if m[2] != "-" {
			entry.Metadata["hostname"] = m[2]
		}
		if m[3] != "-" {
			entry.Parsed["program"] = m[3]
		}
		if m[5] != "-" {
			entry.Metadata["msgid"] = m[5]
		}
		entry.Parsed["syslog_message"] = strings.TrimPrefix(m[7], "\ufeff")
		return
	}

	msg := strings.TrimSpace(rest)
	if m := rfc3164Header.FindStringSubmatch(msg); m != nil {
		entry.Metadata["hostname"] = m[1]
		entry.Parsed["program"] = m[2]
		msg = m[3]
	}
	entry.Parsed["syslog_message"] = msg
}

// syslogFrames is a bufio.SplitFunc for syslog over TCP. A frame starting
// with digits and a space is octet-counted ("12 <13>hello..."); anything
// else runs to the next newline.
func syslogFrames(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	digits := 0
	for digits < len(data) && digits < 10 && data[digits] >= '0' && data[digits] <= '9' {
		digits++
	}
	if digits > 0 {
		if digits == len(data) {
			if atEOF {
				return 0, nil, io.ErrUnexpectedEOF
			}
			return 0, nil, nil
		}
		if data[digits] == ' ' {
			size, err := strconv.Atoi(string(data[:digits]))
			if err != nil || size <= 0 {
				return 0, nil, fmt.Errorf("invalid syslog frame length %q", data[:digits])
			}
			end := digits + 1 + size
			if len(data) >= end {
				return end, data[digits+1 : end], nil
			}
			if atEOF {
				return 0, nil, io.ErrUnexpectedEOF
			}
			return 0, nil, nil
		}
	}

	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i], nil
	}
	return bufio.ScanLines(data, atEOF)
}
