// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package network

// In this file: the per-category gate in front of the transport.  Two
// budgets are enforced per call: the category's per-minute allowance and the
// instantaneous per-second cap shared by all categories.

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned by a fail-fast gate when the budget is
// exhausted or the category is cooling down.  Blocking gates never return
// it, they wait instead.
var ErrRateLimited = errors.New("rate limited")

// Gate dispenses permission to issue tool invocations.  Each category has an
// independent per-minute budget; the per-second cap is shared, as the server
// counts every request against it regardless of type.
type Gate struct {
	cats [3]*catLimiter
}

// NewGate validates the limits and builds the category limiters.
func NewGate(l Limits) (*Gate, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	shared := rate.NewLimiter(rate.Limit(l.RequestsPerSecond), int(l.Burst))
	mk := func(c Category, perMin *rate.Limiter) *catLimiter {
		return &catLimiter{
			cat:           c,
			failFast:      l.FailFast,
			cooldownAfter: l.CooldownAfter,
			cooldown:      l.Cooldown,
			perMin:        perMin,
			perSec:        shared,
		}
	}
	var g Gate
	g.cats[CatGeneric] = mk(CatGeneric, nil)
	g.cats[CatMessages] = mk(CatMessages, NewLimiter(l.MessagesPerMinute, l.Burst))
	g.cats[CatChats] = mk(CatChats, NewLimiter(l.ChatsPerMinute, l.Burst))
	return &g, nil
}

// Limiter returns the waiter for the category, suitable for [WithRetry].
// Unknown categories fall back to the generic one.
func (g *Gate) Limiter(c Category) Waiter {
	if c < CatGeneric || c > CatChats {
		c = CatGeneric
	}
	return g.cats[c]
}

// catLimiter enforces one category's budgets.  Reservations are taken under
// the mutex, so concurrent waiters are served in arrival order.
type catLimiter struct {
	cat           Category
	failFast      bool
	cooldownAfter int
	cooldown      time.Duration

	mu        sync.Mutex
	perMin    *rate.Limiter // nil for the generic category
	perSec    *rate.Limiter // shared across categories
	coolUntil time.Time
	throttles int // consecutive server throttles
}

// Wait blocks until the category may issue one request, or fails with
// [ErrRateLimited] in fail-fast mode.  The token is reserved on both
// limiters atomically: a caller never consumes the per-second budget without
// also consuming the per-minute one.
func (l *catLimiter) Wait(ctx context.Context) error {
	if err := l.cooldownWait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	t := time.Now()
	var rsvs []*rate.Reservation
	until := t
	for _, lim := range []*rate.Limiter{l.perMin, l.perSec} {
		if lim == nil {
			continue
		}
		r := lim.ReserveN(t, 1)
		if !r.OK() {
			for _, p := range rsvs {
				p.CancelAt(t)
			}
			l.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrRateLimited, l.cat)
		}
		rsvs = append(rsvs, r)
		if u := t.Add(r.DelayFrom(t)); u.After(until) {
			until = u
		}
	}
	if l.failFast && until.After(t) {
		for _, r := range rsvs {
			r.CancelAt(t)
		}
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRateLimited, l.cat)
	}
	l.mu.Unlock()

	if d := until.Sub(t); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			for _, r := range rsvs {
				r.Cancel()
			}
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// cooldownWait blocks while the category cools down after repeated server
// throttling.
func (l *catLimiter) cooldownWait(ctx context.Context) error {
	l.mu.Lock()
	d := time.Until(l.coolUntil)
	l.mu.Unlock()
	if d <= 0 {
		return nil
	}
	if l.failFast {
		return fmt.Errorf("%w: %s cooling down for another %s", ErrRateLimited, l.cat, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// throttled records one server-side throttling response.  On the Nth
// consecutive one the category enters cooldown: our counters have clearly
// drifted from the server's.
func (l *catLimiter) throttled() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.throttles++
	if l.throttles >= l.cooldownAfter {
		l.coolUntil = time.Now().Add(l.cooldown)
		l.throttles = 0
	}
}

// succeeded resets the consecutive throttle counter.
func (l *catLimiter) succeeded() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.throttles = 0
}
