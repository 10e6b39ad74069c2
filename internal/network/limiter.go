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

import (
	"time"

	"golang.org/x/time/rate"
)

// Category is a class of tool invocations with its own quota.  Message
// pulls are the heaviest and get the tightest budget, so that they cannot
// starve chat listings or the occasional status call.
type Category int

const (
	// CatGeneric is everything that is not messages or chats:
	// authentication, status, info, exports.
	CatGeneric Category = iota
	// CatMessages covers message listing and search.
	CatMessages
	// CatChats covers chat listing.
	CatChats
)

func (c Category) String() string {
	switch c {
	case CatMessages:
		return "messages"
	case CatChats:
		return "chats"
	default:
		return "generic"
	}
}

// NewLimiter returns throttler with perMinute requests per minute and the
// given burst allowance.
func NewLimiter(perMinute int, burst uint) *rate.Limiter {
	return rate.NewLimiter(rate.Every(every(perMinute)), int(burst))
}

func every(perMinute int) time.Duration {
	return time.Minute / time.Duration(perMinute)
}
