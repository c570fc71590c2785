package chromelogger

import (
	"fmt"

	"github.com/zircuit-labs/zkr-chromelogger/xerrors/errclass"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/stacktrace"
)

// Level is the console method a row is rendered with.
type Level int

const (
	LevelLog Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelGroup
	LevelGroupCollapsed
	LevelGroupEnd
	LevelTable
)

var levelNames = [...]string{
	LevelLog:            "log",
	LevelInfo:           "info",
	LevelWarn:           "warn",
	LevelError:          "error",
	LevelGroup:          "group",
	LevelGroupCollapsed: "groupCollapsed",
	LevelGroupEnd:       "groupEnd",
	LevelTable:          "table",
}

// String returns the wire name of the level.
func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// IsGroup reports whether the level opens or closes a group. Group rows never carry a backtrace.
func (l Level) IsGroup() bool {
	return l == LevelGroup || l == LevelGroupCollapsed || l == LevelGroupEnd
}

// ParseLevel returns the level with the given wire name, eg `groupCollapsed`.
func ParseLevel(name string) (Level, error) {
	for l, n := range levelNames {
		if n == name {
			return Level(l), nil
		}
	}
	return LevelLog, errclass.WrapAs(stacktrace.Wrap(fmt.Errorf("unknown log level %q", name)), errclass.Persistent)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if l < 0 || int(l) >= len(levelNames) {
		return nil, stacktrace.Wrap(fmt.Errorf("invalid log level %d", int(l)))
	}
	return []byte(levelNames[l]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	level, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = level
	return nil
}
