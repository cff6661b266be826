// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"crypto/tls"
	"fmt"
	"log"
	"os"

	mail "gopkg.in/gomail.v2"
)

// alerter sends a mail for each fatal error of an ingested stream.
type alerter struct {
	cfg MailConfig
	msg *log.Logger

	send func(m *mail.Message) error
}

func newAlerter(cfg MailConfig, msg *log.Logger) *alerter {
	a := &alerter{cfg: cfg, msg: msg}
	a.send = func(m *mail.Message) error {
		dial := mail.NewDialer(a.cfg.Server, a.cfg.Port, a.cfg.User, a.cfg.Password)
		dial.TLSConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
		return dial.DialAndSend(m)
	}
	return a
}

func (a *alerter) alert(stream string, err error) {
	if !a.cfg.valid() {
		a.msg.Printf("could not send mail alert: missing credentials")
		return
	}

	host, _ := os.Hostname()

	m := mail.NewMessage()
	m.SetHeader("From", a.cfg.User)
	m.SetHeader("Bcc", a.cfg.Targets...)
	m.SetHeader("Subject", fmt.Sprintf("[ooi-ingest] stream alert: %q", stream))
	m.SetBody("text/plain", fmt.Sprintf("host:   %s\nstream: %q\nerror:  %+v",
		host, stream, err,
	))

	e := a.send(m)
	if e != nil {
		a.msg.Printf("could not send mail alert: %+v", e)
	}
}
