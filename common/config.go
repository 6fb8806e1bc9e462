// this code is from https://github.com/pzhzqt/goostub
// there is license and copyright notice in licenses/goostub dir

package common

import (
	"time"
)

var CycleDetectionInterval time.Duration
var EnableLogging bool = false
var LogTimeout time.Duration
var EnableDebug bool = false

// ActiveLogKindSetting is the bitmask of LogLevel categories currently traced
// by Tracef. Left at zero (silent) unless a caller opts in.
var ActiveLogKindSetting LogLevel = 0

const (
	// invalid log sequence number
	InvalidLSN = -1
	// the header page id
	HeaderPageID = 0
	// size of a data page in byte
	PageSize = 4096
	// max global depth an extendible hash directory is allowed to grow to
	MaxHashDirDepth = 9
)
