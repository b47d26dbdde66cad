// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package configwatch

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// Watch monitors the file at path and invokes onChange once for every
// completed modification. onChange is called from the watch goroutine;
// it must be safe for concurrent use and should be quick.
//
// The watch is installed on the parent directory, not the file: tools
// that write a temp file and rename it over the target create a new
// inode, which a file-level watch on the old inode would miss. Events
// are filtered to the exact target filename; IN_CLOSE_WRITE catches
// in-place writes and IN_MOVED_TO catches atomic rename-over.
//
// There is no coalescing of rapid modifications: each matching event
// produces one onChange call.
//
// Returns a stop function that halts the watcher and releases the
// inotify descriptor. Safe to call more than once.
func Watch(path string, onChange func(), logger *slog.Logger) (func(), error) {
	absolutePath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	directory := filepath.Dir(absolutePath)
	filename := filepath.Base(absolutePath)

	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify_init1: %w", err)
	}

	if _, err := unix.InotifyAddWatch(fd, directory, unix.IN_CLOSE_WRITE|unix.IN_MOVED_TO); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("inotify_add_watch on %s: %w", directory, err)
	}

	quit := make(chan struct{})
	go watchLoop(fd, filename, onChange, logger, quit)

	var once sync.Once
	stop := func() { once.Do(func() { close(quit) }) }
	return stop, nil
}

// watchLoop polls the inotify fd for events on the target filename
// and fires onChange per match. Closes the fd when the loop exits.
//
// Uses poll(2) with a 100ms timeout so the goroutine remains
// responsive to the stop signal without burning CPU on a tight loop.
func watchLoop(fd int, filename string, onChange func(), logger *slog.Logger, quit <-chan struct{}) {
	defer unix.Close(fd)

	buf := make([]byte, 4096)
	for {
		select {
		case <-quit:
			return
		default:
		}

		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		ready, err := unix.Poll(fds, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			logger.Warn("config watch poll failed, watcher exiting", "error", err)
			return
		}
		if ready == 0 {
			// Poll timed out; loop around to recheck quit.
			continue
		}

		n, err := unix.Read(fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			logger.Warn("config watch read failed, watcher exiting", "error", err)
			return
		}

		matches := matchingEvents(buf[:n], filename)
		for i := 0; i < matches; i++ {
			logger.Info("config file modified", "file", filename)
			onChange()
		}
	}
}

// matchingEvents counts how many inotify records in buf name the
// target file. A record is SizeofInotifyEvent bytes of header followed
// by a null-padded name whose length sits at header offset 12; see
// inotify(7) for the full layout.
func matchingEvents(buf []byte, target string) int {
	matches := 0
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buf) {
		nameLen := int(binary.NativeEndian.Uint32(buf[offset+12 : offset+16]))
		recordLen := unix.SizeofInotifyEvent + nameLen
		if offset+recordLen > len(buf) {
			break
		}

		if nameLen > 0 {
			name := buf[offset+unix.SizeofInotifyEvent : offset+recordLen]
			if cString(name) == target {
				matches++
			}
		}

		offset += recordLen
	}
	return matches
}

// cString returns the bytes before the first NUL as a string.
func cString(data []byte) string {
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}
