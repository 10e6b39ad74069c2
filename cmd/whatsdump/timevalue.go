package main

import (
	"flag"
	"time"
)

const timeFmt = "2006-01-02T15:04:05"

// timeValue satisfies flag.Value, used for command line parsing.
type timeValue time.Time

var _ flag.Value = &timeValue{}

func (tv *timeValue) String() string {
	if time.Time(*tv).IsZero() {
		return ""
	}
	return time.Time(*tv).Format(timeFmt)
}

func (tv *timeValue) Set(s string) error {
	if s == "" {
		return nil
	}
	t, err := time.Parse(timeFmt, s)
	if err != nil {
		return err
	}
	*tv = timeValue(t)
	return nil
}
