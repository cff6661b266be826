// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ooi-tdaq starts a TDAQ process publishing the records decoded
// from an instrument stream file on its /records output.
//
// The /config command carries the path to the stream file, the name of
// the stream format and whether the stream holds recovered data:
//
//	fname:str format:str recovered:u32
package main // import "github.com/go-lpc/ocean/cmd/ooi-tdaq"

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
)

func main() {
	cmd := flags.New()

	dev := server{
		pub: &publisher{freq: 1 * time.Second},
	}

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/records", dev.records)

	srv.RunHandle(dev.run)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

type server struct {
	pub *publisher
}

func (dev *server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")

	dec := tdaq.NewDecoder(bytes.NewReader(req.Body))
	var (
		fname     = dec.ReadStr()
		format    = dec.ReadStr()
		recovered = dec.ReadU32() != 0
	)

	err := dev.pub.configure(fname, format, recovered)
	if err != nil {
		ctx.Msg.Errorf("could not configure stream %q: %+v", fname, err)
		return fmt.Errorf("could not configure stream %q: %w", fname, err)
	}
	ctx.Msg.Infof("configured %s stream %q (recovered=%v)", format, fname, recovered)
	return nil
}

func (dev *server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	err := dev.pub.init()
	if err != nil {
		ctx.Msg.Errorf("could not initialize stream: %+v", err)
		return fmt.Errorf("could not initialize stream: %w", err)
	}
	return nil
}

func (dev *server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	dev.pub.stop()
	err := dev.pub.init()
	if err != nil {
		ctx.Msg.Errorf("could not reset stream: %+v", err)
		return fmt.Errorf("could not reset stream: %w", err)
	}
	return nil
}

func (dev *server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	return dev.pub.start()
}

func (dev *server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	dev.pub.stop()
	n, nerrs, pos := dev.pub.stats()
	ctx.Msg.Debugf("received /stop command... -> n=%d, anomalies=%d, pos=%d", n, nerrs, pos)
	return nil
}

func (dev *server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return dev.pub.quit()
}

func (dev *server) records(ctx tdaq.Context, dst *tdaq.Frame) error {
	dst.Body = dev.pub.next(ctx.Ctx)
	return nil
}

func (dev *server) run(ctx tdaq.Context) error {
	return dev.pub.run(ctx.Ctx)
}
