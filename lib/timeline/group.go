// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"sort"
	"time"
)

const (
	// DayKeyLayout formats DayGroup.Day.
	DayKeyLayout = "2006-01-02"
	// DayLabelLayout is the medium date style of DayGroup.Label.
	DayLabelLayout = "Jan 2, 2006"
	// TimeLayout is the minute-granularity label of DisplayMessage.Time.
	TimeLayout = "15:04"
)

// DisplayMessage is a message with its coalesced labels. Sender and
// Time are empty when they repeat the previous message's values.
type DisplayMessage struct {
	Message
	Sender string
	Time   string
}

// DayGroup is the messages of one local calendar day.
type DayGroup struct {
	// Day is the date as YYYY-MM-DD.
	Day string
	// Date is midnight of Day in the grouping location.
	Date     time.Time
	Messages []DisplayMessage
}

// Label renders the day for a separator line.
func (g DayGroup) Label() string {
	return g.Date.Format(DayLabelLayout)
}

// coalescer is the fold accumulator: the last sender and time label
// emitted over the whole sequence.
type coalescer struct {
	lastSender string
	lastTime   string
}

func (c *coalescer) next(message Message, location *time.Location) DisplayMessage {
	display := DisplayMessage{Message: message}

	sender := message.Sender.String()
	if sender != c.lastSender {
		display.Sender = sender
		c.lastSender = sender
	}

	label := message.Timestamp.In(location).Format(TimeLayout)
	if label != c.lastTime {
		display.Time = label
		c.lastTime = label
	}
	return display
}

// Group buckets messages by calendar day in location and coalesces
// their labels. Days are ascending; messages keep input order within a
// day. A nil location means UTC. Group is pure: the coalescing state
// starts empty on every call.
func Group(messages []Message, location *time.Location) []DayGroup {
	if len(messages) == 0 {
		return nil
	}
	if location == nil {
		location = time.UTC
	}

	index := make(map[string]int)
	var groups []DayGroup
	for _, message := range messages {
		local := message.Timestamp.In(location)
		key := local.Format(DayKeyLayout)
		position, ok := index[key]
		if !ok {
			position = len(groups)
			index[key] = position
			year, month, day := local.Date()
			groups = append(groups, DayGroup{
				Day:  key,
				Date: time.Date(year, month, day, 0, 0, 0, 0, location),
			})
		}
		groups[position].Messages = append(groups[position].Messages, DisplayMessage{Message: message})
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Day < groups[j].Day })

	var fold coalescer
	for groupIndex := range groups {
		for messageIndex, display := range groups[groupIndex].Messages {
			groups[groupIndex].Messages[messageIndex] = fold.next(display.Message, location)
		}
	}
	return groups
}

// Flatten returns the messages of groups in display order.
func Flatten(groups []DayGroup) []DisplayMessage {
	var flattened []DisplayMessage
	for _, group := range groups {
		flattened = append(flattened, group.Messages...)
	}
	return flattened
}
