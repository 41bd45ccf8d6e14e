// Copyright 2018 The klaytn Authors
// This file is part of the klaytn library.
//
// The klaytn library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The klaytn library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the klaytn library. If not, see <http://www.gnu.org/licenses/>.

// Package log provides the module logger every QNet component obtains at
// construction time, mirroring the teacher's log.NewModuleLogger(log.X)
// convention but backed by go.uber.org/zap's sugared logger instead of a
// hand-rolled handler chain.
package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ModuleName identifies the subsystem a logger belongs to, used purely to
// tag log lines so operators can filter by component.
type ModuleName string

const (
	Common     ModuleName = "common"
	Consensus  ModuleName = "consensus"
	Mempool    ModuleName = "mempool"
	Reward     ModuleName = "reward"
	Activation ModuleName = "activation"
	Executor   ModuleName = "executor"
	XShard     ModuleName = "xshard"
	Storage    ModuleName = "storage"
	RPC        ModuleName = "rpc"
	Node       ModuleName = "node"
	Crypto     ModuleName = "crypto"
	Archive    ModuleName = "archive"
)

var (
	mu        sync.Mutex
	baseOnce  sync.Once
	baseLog   *zap.Logger
	logLevel  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	modLogger = map[ModuleName]*Logger{}
)

// Logger is a thin wrapper around zap's SugaredLogger exposing the
// key/value call convention the teacher's logger uses, e.g.
// logger.Debug("Block reward - Minted KLAY", "reward address of proposer", proposer, "Amount", amount).
type Logger struct {
	name ModuleName
	s    *zap.SugaredLogger
}

func newBase() *zap.Logger {
	cfg := zap.Config{
		Level:            logLevel,
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		// Logging must never be the reason a node fails to start; fall
		// back to a bare stderr logger.
		l = zap.NewExample()
		l.Warn("failed to build structured logger, using fallback", zap.Error(err))
	}
	return l
}

// SetLevel adjusts the process-wide minimum log level. Safe to call from
// node.Config's hot-reload watcher.
func SetLevel(level string) {
	var l zapcore.Level
	if err := l.Set(level); err != nil {
		return
	}
	logLevel.SetLevel(l)
}

// NewModuleLogger returns the shared Logger for module, constructing the
// process-wide zap base logger on first use.
func NewModuleLogger(module ModuleName) *Logger {
	baseOnce.Do(func() { baseLog = newBase() })

	mu.Lock()
	defer mu.Unlock()
	if l, ok := modLogger[module]; ok {
		return l
	}
	l := &Logger{name: module, s: baseLog.Sugar().Named(string(module))}
	modLogger[module] = l
	return l
}

func (l *Logger) NewWith(kv ...interface{}) *Logger {
	return &Logger{name: l.name, s: l.s.With(kv...)}
}

func (l *Logger) Trace(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l *Logger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }

// Crit logs at error severity and then terminates the process, matching the
// teacher's logger.Crit used for unrecoverable configuration errors (e.g.
// checkDBEntryConfigRatio). QNet reserves it for startup-time invariant
// violations only; no consensus-path code may call it, per spec.md §7's
// "never panic" propagation rule.
func (l *Logger) Crit(msg string, kv ...interface{}) {
	l.s.Errorw(msg, kv...)
	os.Exit(1)
}
