package wal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"

	"simcore/internal/events"
	"simcore/internal/primitives"
)

// Binary record layout (little-endian throughout):
//
//	MAGIC    u32  = magicValue ("WAL1")
//	VERSION  u16  = recordVersion
//	LENGTH   u32  = payload byte count
//	EVENT_ID u64
//	TICK     u64
//	PAYLOAD  LENGTH bytes   (JSON-encoded events.EventData)
//	CRC32    u32            (IEEE, over everything above)
const (
	magicValue    uint32 = 0x57414C31 // "WAL1"
	recordVersion uint16 = 1

	fixedHeaderSize = 4 + 2 + 4 + 8 + 8 // magic, version, length, event_id, tick
	trailerSize     = 4                // crc32
)

// encodeRecord serializes e into the on-disk binary record format.
func encodeRecord(e events.SimEvent) ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	buf := make([]byte, fixedHeaderSize+len(payload)+trailerSize)
	binary.LittleEndian.PutUint32(buf[0:4], magicValue)
	binary.LittleEndian.PutUint16(buf[4:6], recordVersion)
	binary.LittleEndian.PutUint32(buf[6:10], uint32(len(payload)))
	binary.LittleEndian.PutUint64(buf[10:18], uint64(e.EventID))
	binary.LittleEndian.PutUint64(buf[18:26], uint64(e.Tick))
	copy(buf[26:26+len(payload)], payload)

	crc := crc32.ChecksumIEEE(buf[:26+len(payload)])
	binary.LittleEndian.PutUint32(buf[26+len(payload):], crc)
	return buf, nil
}

// decodeRecord reads one record starting at the reader's current position.
// It returns the decoded event and the total byte length of the record on
// disk (header + payload + trailer), or an error for any magic/version/CRC
// mismatch or short read.
func decodeRecord(r io.Reader) (events.SimEvent, int, error) {
	header := make([]byte, fixedHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return events.SimEvent{}, 0, err
	}

	magic := binary.LittleEndian.Uint32(header[0:4])
	if magic != magicValue {
		return events.SimEvent{}, 0, fmt.Errorf("bad magic %#x", magic)
	}
	version := binary.LittleEndian.Uint16(header[4:6])
	if version != recordVersion {
		return events.SimEvent{}, 0, fmt.Errorf("unsupported record version %d", version)
	}
	length := binary.LittleEndian.Uint32(header[6:10])
	eventID := binary.LittleEndian.Uint64(header[10:18])
	tick := binary.LittleEndian.Uint64(header[18:26])

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return events.SimEvent{}, 0, fmt.Errorf("short payload: %w", err)
	}

	trailer := make([]byte, trailerSize)
	if _, err := io.ReadFull(r, trailer); err != nil {
		return events.SimEvent{}, 0, fmt.Errorf("short trailer: %w", err)
	}
	wantCRC := binary.LittleEndian.Uint32(trailer)

	gotCRC := crc32.ChecksumIEEE(append(append([]byte{}, header...), payload...))
	if gotCRC != wantCRC {
		return events.SimEvent{}, 0, fmt.Errorf("crc mismatch: got %#x want %#x", gotCRC, wantCRC)
	}

	var data events.EventData
	if err := json.Unmarshal(payload, &data); err != nil {
		return events.SimEvent{}, 0, fmt.Errorf("decode payload: %w", err)
	}

	e := events.SimEvent{
		EventID: primitives.EventId(eventID),
		Tick:    primitives.Tick(tick),
		Data:    data,
	}
	return e, fixedHeaderSize + int(length) + trailerSize, nil
}
