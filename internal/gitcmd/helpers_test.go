package gitcmd_test

import "errors"

var errConflict = errors.New("conflict")
