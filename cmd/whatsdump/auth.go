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

package main

// In this file: device pairing, status and logout modes.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/rusq/whatsdump"
	"github.com/rusq/whatsdump/types"
)

var phoneRe = regexp.MustCompile(`^\+?[1-9][0-9]{6,14}$`)

// runAuth pairs the bridge with the device.  Without a phone number on the
// command line it asks for one, and shows the pairing code the bridge
// responds with.
func runAuth(ctx context.Context, sess *whatsdump.Session, p params) error {
	phone := p.cfg.Phone
	if phone == "" && isInteractive() {
		err := huh.NewInput().
			Title("Phone number").
			Description("The number the WhatsApp account is registered to, in international\nformat.  Leave empty to let the bridge decide.").
			Placeholder("+15551230001").
			Value(&phone).
			Validate(valPhone).
			Run()
		if err != nil {
			return err
		}
	}

	var res *types.AuthResult
	authFn := func(ctx context.Context) error {
		r, err := sess.Authenticate(ctx, phone)
		if err != nil {
			return err
		}
		res = r
		return nil
	}
	var err error
	if isInteractive() {
		err = spinner.New().
			Title("Waiting for the bridge to pair...").
			Context(ctx).
			ActionWithErr(authFn).
			Run()
	} else {
		err = authFn(ctx)
	}
	if err != nil {
		return err
	}

	switch {
	case res.Authenticated():
		color.HiGreen("Paired as %s.", res.Phone)
	case res.Pending():
		fmt.Println("Scan the code below with the WhatsApp app (Linked Devices > Link a Device):")
		fmt.Println()
		color.HiWhite("\t%s", res.QRCode)
		fmt.Println()
		if res.Message != "" {
			fmt.Println(res.Message)
		}
		fmt.Println("Run with -status to check whether the pairing went through.")
	default:
		return fmt.Errorf("unexpected authentication status %q", res.Status)
	}
	return nil
}

func valPhone(s string) error {
	if s == "" {
		return nil
	}
	if !phoneRe.MatchString(s) {
		return errors.New("international format expected, i.e. +15551230001")
	}
	return nil
}

// runStatus prints the bridge connection snapshot.
func runStatus(ctx context.Context, sess *whatsdump.Session, p params) error {
	st, err := sess.Status(ctx)
	if err != nil {
		return err
	}
	f, err := createFile(p.output)
	if err != nil {
		return err
	}
	defer f.Close()

	if p.format == "json" {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Fprintf(f, "connected:     %s\n", yesNo(st.Connected))
	fmt.Fprintf(f, "authenticated: %s\n", yesNo(st.Authenticated))
	if st.Phone != "" {
		fmt.Fprintf(f, "phone:         %s\n", st.Phone)
	}
	if !st.LastActivity.IsZero() {
		fmt.Fprintf(f, "last activity: %s\n", humanize.Time(st.LastActivity))
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return color.GreenString("yes")
	}
	return color.RedString("no")
}

// runLogout drops the device pairing.
func runLogout(ctx context.Context, sess *whatsdump.Session) error {
	if err := sess.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "You have been logged out.")
	return nil
}
