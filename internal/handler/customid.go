package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Component custom ids:
//
//	s:<session id>:<verb>[:<arg>]  session buttons
//	p:<kind>:<stake>               replay offer
//	r:attack                       raid attack button
const (
	scopeSession = "s"
	scopeReplay  = "p"
	scopeRaid    = "r"

	raidAttack = "attack"
)

// Session verbs handled by the lobby rather than the game.
const (
	verbJoin   = "join"
	verbStart  = "start"
	verbCancel = "cancel"
)

// ErrBadCustomID is returned for component ids this bot did not issue.
var ErrBadCustomID = errors.New("unrecognized component id")

// CustomID is a parsed component id.
type CustomID struct {
	Scope string
	// Target is the session id for session buttons and the game kind for replays.
	Target string
	Verb   string
	Arg    string
}

func sessionButtonID(sessionID, verb, arg string) string {
	if arg == "" {
		return scopeSession + ":" + sessionID + ":" + verb
	}
	return scopeSession + ":" + sessionID + ":" + verb + ":" + arg
}

func replayButtonID(kind string, stake int64) string {
	return scopeReplay + ":" + kind + ":" + strconv.FormatInt(stake, 10)
}

// RaidAttackID is the custom id of the raid attack button.
const RaidAttackID = scopeRaid + ":" + raidAttack

// ParseCustomID splits a component id issued by this bot.
func ParseCustomID(raw string) (CustomID, error) {
	parts := strings.SplitN(raw, ":", 4)
	switch parts[0] {
	case scopeSession:
		if len(parts) < 3 || parts[1] == "" || parts[2] == "" {
			break
		}
		id := CustomID{Scope: scopeSession, Target: parts[1], Verb: parts[2]}
		if len(parts) == 4 {
			id.Arg = parts[3]
		}
		return id, nil
	case scopeReplay:
		if len(parts) != 3 || parts[1] == "" {
			break
		}
		if _, err := strconv.ParseInt(parts[2], 10, 64); err != nil {
			break
		}
		return CustomID{Scope: scopeReplay, Target: parts[1], Arg: parts[2]}, nil
	case scopeRaid:
		if len(parts) == 2 && parts[1] == raidAttack {
			return CustomID{Scope: scopeRaid, Verb: raidAttack}, nil
		}
	}
	return CustomID{}, fmt.Errorf("%w: %q", ErrBadCustomID, raw)
}

// Stake returns the replay stake of a replay id.
func (c CustomID) Stake() int64 {
	n, _ := strconv.ParseInt(c.Arg, 10, 64)
	return n
}

// IsRaid reports whether the id belongs to a raid button.
func (c CustomID) IsRaid() bool { return c.Scope == scopeRaid }
