// Package storage provides the on-disk conventions for downloaded media.
//
// Every media file is named after the UTC time the item was taken, in the
// form 2006-01-02_15-04-05_UTC followed by an optional index and extension.
// That prefix is the only thing the skip-existing check looks at, so a fresh
// run over a populated directory downloads nothing twice.
//
// The Manager caches directory listings and writes files atomically using a
// temporary file and rename:
//
//	m := storage.NewManager()
//	if !m.Exists(dir, item.TakenAt) {
//	    _, err := m.Save(body, filepath.Join(dir, storage.Stem(item.TakenAt)+".jpg"))
//	}
//
// SanitizePath, SafeName and NewFiles cover path handling for user supplied
// directories, highlight titles and the profile picture download.
package storage
