// Package nlog is a thin structured-ish wrapper over the standard logger,
// mirroring the call sites aistore's cmn/nlog exposes (Infof, Infoln,
// Warnf, Errorf) without pulling in a third-party logging library the
// teacher itself doesn't use at this layer.
package nlog

import (
	"log"
	"os"
)

var std = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)

func Infof(format string, args ...any)  { std.Printf("I "+format, args...) }
func Warnf(format string, args ...any)  { std.Printf("W "+format, args...) }
func Errorf(format string, args ...any) { std.Printf("E "+format, args...) }

func Infoln(args ...any) { std.Println(append([]any{"I"}, args...)...) }
func Warnln(args ...any) { std.Println(append([]any{"W"}, args...)...) }
func Errorln(args ...any) { std.Println(append([]any{"E"}, args...)...) }
