package mqtt

import "strings"

// Topics builds the topic names below a prefix.
//
//	<prefix>/status                      online/offline (retained, LWT)
//	<prefix>/monitor/state               idle/running (retained)
//	<prefix>/monitor/events/<event>      run lifecycle and cycle stats
//	<prefix>/regions/<region>/<event>    triggers, failures, probes
//	<prefix>/command                     inbound commands
//	<prefix>/command/result              command outcomes
type Topics struct {
	Prefix string
}

func (t Topics) join(parts ...string) string {
	return strings.Join(append([]string{t.Prefix}, parts...), "/")
}

// Status is the client presence topic.
func (t Topics) Status() string { return t.join("status") }

// MonitorState is the retained run state topic.
func (t Topics) MonitorState() string { return t.join("monitor", "state") }

// MonitorEvent is the topic for a monitor-level event.
func (t Topics) MonitorEvent(name string) string { return t.join("monitor", "events", segment(name)) }

// RegionEvent is the topic for an event from one region.
func (t Topics) RegionEvent(regionName, name string) string {
	return t.join("regions", segment(regionName), segment(name))
}

// Command is the inbound command topic.
func (t Topics) Command() string { return t.join("command") }

// CommandResult is the outbound command outcome topic.
func (t Topics) CommandResult() string { return t.join("command", "result") }

// segment makes s safe as a single topic level.
func segment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#':
			return '_'
		}
		return r
	}, s)
}
