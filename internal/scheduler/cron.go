// Package scheduler runs named jobs on cron schedules.
package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/netresearch/go-cron"
)

// DailyRefresh fires at local midnight, when the previous day's open
// tasks become overdue.
const DailyRefresh = "0 0 * * *"

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// CronExpr is a parsed 5-field spec or a descriptor such as @midnight.
type CronExpr struct {
	raw      string
	schedule cron.Schedule
}

func ParseCron(spec string) (*CronExpr, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("empty cron spec")
	}
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", spec, err)
	}
	return &CronExpr{raw: spec, schedule: schedule}, nil
}

// Next returns the first activation strictly after t, in t's location.
func (c *CronExpr) Next(t time.Time) time.Time {
	return c.schedule.Next(t)
}

// Until returns the wait from now to the next activation.
func (c *CronExpr) Until(now time.Time) time.Duration {
	return c.Next(now).Sub(now)
}

func (c *CronExpr) String() string {
	return c.raw
}
