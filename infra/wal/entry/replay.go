package entry

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

type ReplayHandler func(*Record) error

// Replay reads every segment in order and feeds the decoded records to
// fn. It returns the highest sequence number seen so the sequencer can
// resume from there.
func Replay(dir string, fn ReplayHandler) (lastSeq uint64, err error) {
	paths, err := segmentPaths(dir)
	if err != nil {
		return 0, err
	}

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return lastSeq, err
		}

		for {
			rec, err := readFrame(f)
			if err == io.EOF {
				break
			}
			if err != nil {
				_ = f.Close()
				return lastSeq, fmt.Errorf("wal: replay %s: %w", path, err)
			}
			if rec.Seq <= lastSeq {
				_ = f.Close()
				return lastSeq, fmt.Errorf("wal: non-monotonic seq %d", rec.Seq)
			}
			lastSeq = rec.Seq
			if err := fn(rec); err != nil {
				_ = f.Close()
				return lastSeq, err
			}
		}
		_ = f.Close()
	}
	return lastSeq, nil
}

func readFrame(r io.Reader) (*Record, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}
	bodyLen := binary.BigEndian.Uint32(header[0:4])
	wantCRC := binary.BigEndian.Uint32(header[4:8])

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, ErrCorruptRecord
	}
	if crc32.ChecksumIEEE(body) != wantCRC {
		return nil, ErrCorruptRecord
	}
	return unmarshalRecord(body)
}
