// Package ics renders a calendar's events as an iCalendar document.
package ics

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"

	"github.com/Serdarq1/calendar-api/internal/calendar"
)

const (
	productID  = "-//calendar-api//EN"
	dateLayout = "2006-01-02"
	timeLayout = "2006-01-02 15:04"
)

// Export encodes the events of a named calendar as a VCALENDAR. Events whose
// date cannot be parsed are skipped rather than failing the whole feed.
func Export(name string, events []calendar.EventView) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	if name != "" {
		cal.Props.SetText("X-WR-CALNAME", name)
	}

	now := time.Now().UTC()
	for _, event := range events {
		vevent, ok := toVEvent(event, now)
		if !ok {
			continue
		}
		cal.Children = append(cal.Children, vevent)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

func toVEvent(event calendar.EventView, stamp time.Time) (*ical.Component, bool) {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, event.ID)
	ve.Props.SetText(ical.PropSummary, event.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp)

	if event.Time != "" {
		start, err := time.ParseInLocation(timeLayout, event.Date+" "+event.Time, time.Local)
		if err == nil {
			ve.Props.SetDateTime(ical.PropDateTimeStart, start)
			ve.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(time.Hour))
			return ve, true
		}
		// Fall through to an all-day entry when the time is malformed.
	}

	day, err := time.Parse(dateLayout, event.Date)
	if err != nil {
		return nil, false
	}
	start := ical.NewProp(ical.PropDateTimeStart)
	start.SetValueType(ical.ValueDate)
	start.Value = day.Format("20060102")
	ve.Props.Set(start)
	return ve, true
}
