package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

// RollbarLogger reports to Rollbar and mirrors everything to a standard
// logger. A user.User passed among the args is attached to the report as the
// acting person instead of being logged as payload.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) { rollbar.SetEnabled(enabled) }

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.report(rollbar.Debug, msg, args) }
func (l RollbarLogger) Info(msg string, args ...interface{})  { l.report(rollbar.Info, msg, args) }
func (l RollbarLogger) Warn(msg string, args ...interface{})  { l.report(rollbar.Warning, msg, args) }
func (l RollbarLogger) Error(msg string, args ...interface{}) { l.report(rollbar.Error, msg, args) }

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.Critical, msg, args)
	l.std.Fatal(msg)
}

func (l RollbarLogger) report(send func(...interface{}), msg string, args []interface{}) {
	send(l.extractPerson(msg, args)...)

	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

// extractPerson pulls the first user.User out of args and sets it as the
// report's person; remaining args pass through untouched.
func (l RollbarLogger) extractPerson(msg string, args []interface{}) []interface{} {
	var personSet bool
	out := make([]interface{}, 0, len(args)+1)
	out = append(out, msg)
	for _, arg := range args {
		usr, ok := arg.(user.User)
		if ok && !personSet {
			rollbar.SetPerson(usr.ID, usr.Username, usr.Email)
			personSet = true
			continue
		}
		if ok {
			continue
		}
		out = append(out, arg)
	}
	if !personSet {
		rollbar.ClearPerson()
	}
	return out
}
