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

// In this file: rate limit settings and their validation.

import (
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// OptErrTranslations is the english translator for validation errors,
	// to present them in a readable form to the user.
	OptErrTranslations ut.Translator

	validate = validator.New()
)

func init() {
	english := en.New()
	uni := ut.New(english, english)
	var ok bool
	OptErrTranslations, ok = uni.GetTranslator("en")
	if !ok {
		panic("internal error: failed to init translator")
	}
	if err := en_translations.RegisterDefaultTranslations(validate, OptErrTranslations); err != nil {
		panic(err)
	}
}

// Limits hold the rate limit settings for talking to the tool server.
type Limits struct {
	// Workers is the number of concurrent chat fetchers for bulk
	// extraction.
	Workers int `json:"workers,omitempty" toml:"workers" validate:"gte=1,lte=32"`
	// MessagesPerMinute is the per-minute budget of the message-fetch
	// category.
	MessagesPerMinute int `json:"messages_per_minute,omitempty" toml:"messages_per_minute" validate:"gte=1"`
	// ChatsPerMinute is the per-minute budget of the chat-list category.
	ChatsPerMinute int `json:"chats_per_minute,omitempty" toml:"chats_per_minute" validate:"gte=1"`
	// RequestsPerSecond is the instantaneous cap shared by all
	// categories.
	RequestsPerSecond int `json:"requests_per_second,omitempty" toml:"requests_per_second" validate:"gte=1"`
	// Burst is the burst allowance of every limiter.
	Burst uint `json:"burst_limit,omitempty" toml:"burst_limit" validate:"gte=1"`
	// FailFast makes an exhausted budget an [ErrRateLimited] failure
	// instead of a blocking wait.
	FailFast bool `json:"fail_fast,omitempty" toml:"fail_fast"`
	// CooldownAfter is the number of consecutive server throttling
	// responses in one category after which the cooldown engages.
	CooldownAfter int `json:"cooldown_after,omitempty" toml:"cooldown_after" validate:"gte=1"`
	// Cooldown is the period during which every acquire in the affected
	// category blocks, regardless of local counters.  The server's view
	// of the quota wins over ours.
	Cooldown time.Duration `json:"cooldown_period,omitempty" toml:"cooldown_period" validate:"gte=0"`
}

// DefLimits are the default rate limits, matching what the public bridge
// servers tolerate.
var DefLimits = Limits{
	Workers:           4,
	MessagesPerMinute: 60,
	ChatsPerMinute:    30,
	RequestsPerSecond: 2,
	Burst:             10,
	FailFast:          false,
	CooldownAfter:     3,
	Cooldown:          5 * time.Minute,
}

// Apply applies the non-zero fields of other to this Limits instance and
// validates the result.
func (o *Limits) Apply(other Limits) error {
	apply(&o.Workers, other.Workers)
	apply(&o.MessagesPerMinute, other.MessagesPerMinute)
	apply(&o.ChatsPerMinute, other.ChatsPerMinute)
	apply(&o.RequestsPerSecond, other.RequestsPerSecond)
	apply(&o.Burst, other.Burst)
	apply(&o.FailFast, other.FailFast)
	apply(&o.CooldownAfter, other.CooldownAfter)
	apply(&o.Cooldown, other.Cooldown)
	return o.Validate()
}

// Validate checks the Limits struct against the constraints in the
// validate struct tags.
func (o *Limits) Validate() error {
	return validate.Struct(o)
}

func apply[T comparable](this *T, other T) {
	var zero T
	if other != zero {
		*this = other
	}
}
