package main

/*
#include <stdint.h>
*/
import "C"

import (
	"github.com/vmdbg/hookengine/internal/asyncbreak"
)

// cMailbox adapts the exported async_break_code/async_break_data C globals
// to the asyncbreak.Accessor interface.
type cMailbox struct{}

func (cMailbox) LoadCode() uint32      { return uint32(C.async_break_code) }
func (cMailbox) StoreCode(code uint32) { C.async_break_code = C.uint(code) }

func (cMailbox) LoadData() [asyncbreak.DataWords]uint64 {
	var out [asyncbreak.DataWords]uint64
	for i := range out {
		out[i] = uint64(C.async_break_data[i])
	}
	return out
}

func cInstall(installAddr, vmState, hookAddr uintptr, mask uint32) error {
	ret := C.call_install(
		C.uintptr_t(installAddr),
		C.uintptr_t(vmState),
		C.uintptr_t(hookAddr),
		C.uint(mask),
		0,
	)
	if ret == 0 {
		return errInstallFailed
	}
	return nil
}

var errInstallFailed = installError("hook-installation function returned failure")

type installError string

func (e installError) Error() string { return string(e) }

var asyncWorker = asyncbreak.New(cMailbox{}, cInstall, func() { onAsyncBreak() }, asyncbreak.DefaultPollInterval, log)
