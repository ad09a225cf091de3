package lib

import (
	"io"
	"os"
)

// rawEntry is one readdir record before it is materialized into an Entry.
type rawEntry struct {
	name  string
	ftype FileType
}

// readDirBatchSize bounds entries per ReadDir call on the portable path;
// batched reads use fewer syscalls than reading one entry at a time.
const readDirBatchSize = 4096

// readDirPortable enumerates one directory using batched (*os.File).ReadDir.
// On a mid-enumeration failure it returns the entries read so far together
// with the error; the caller decides how to surface the partial listing.
// Exactly one directory handle is open for the duration of the call.
func readDirPortable(path string) ([]rawEntry, error) {
	dirFile, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer dirFile.Close()
	var out []rawEntry
	for {
		batch, err := dirFile.ReadDir(readDirBatchSize)
		for _, dirEntry := range batch {
			name := dirEntry.Name()
			if name == "." || name == ".." {
				continue
			}
			out = append(out, rawEntry{name: name, ftype: fileTypeFromMode(dirEntry.Type())})
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		if len(batch) == 0 {
			return out, nil
		}
	}
}
