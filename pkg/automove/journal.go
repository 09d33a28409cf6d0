package automove

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

// DecisionRecord is one row of the decision journal.
type DecisionRecord struct {
	UnixMillis int64  `parquet:"name=unix_millis, type=INT64"`
	FEN        string `parquet:"name=fen, type=BYTE_ARRAY, convertedtype=UTF8"`
	Move       string `parquet:"name=move, type=BYTE_ARRAY, convertedtype=UTF8"`
	Source     string `parquet:"name=source, type=BYTE_ARRAY, convertedtype=UTF8"`
	ElapsedUs  int64  `parquet:"name=elapsed_us, type=INT64"`
	Error      string `parquet:"name=error, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// JournalWriter streams decisions into a snappy-compressed parquet file.
// Record never blocks the pipeline for long: rows are buffered and written
// by a single goroutine.
type JournalWriter struct {
	records chan DecisionRecord
	log     zerolog.Logger
	now     func() int64

	wg      sync.WaitGroup
	errOnce sync.Once
	err     error

	closeOnce sync.Once
}

// OpenJournal starts a journal writing to path. now stamps each row; nil
// uses the wall clock.
func OpenJournal(path string, log zerolog.Logger, now func() int64) *JournalWriter {
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}
	j := &JournalWriter{
		records: make(chan DecisionRecord, 64),
		log:     log,
		now:     now,
	}
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		if err := WriteJournal(path, j.records, 1); err != nil {
			j.setErr(err)
			j.log.Error().Err(err).Str("path", path).Msg("journal write failed")
			for range j.records {
			}
		}
	}()
	return j
}

// Record implements Journal.
func (j *JournalWriter) Record(d Decision, err error) {
	rec := DecisionRecord{
		UnixMillis: j.now(),
		Move:       string(d.Move),
		Source:     d.Source,
		ElapsedUs:  d.Elapsed.Microseconds(),
	}
	if d.Position != (Position{}) {
		rec.FEN = d.Position.String()
	}
	if err != nil {
		rec.Error = err.Error()
	}
	j.records <- rec
}

// Close flushes the file. It must not race with Record.
func (j *JournalWriter) Close() error {
	j.closeOnce.Do(func() {
		close(j.records)
	})
	j.wg.Wait()
	return j.err
}

func (j *JournalWriter) setErr(err error) {
	j.errOnce.Do(func() { j.err = err })
}

// WriteJournal drains records into a parquet file at path.
func WriteJournal(path string, records <-chan DecisionRecord, parallel int64) error {
	fileWriter, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	defer fileWriter.Close()

	parquetWriter, err := writer.NewParquetWriter(fileWriter, new(DecisionRecord), parallel)
	if err != nil {
		return err
	}
	parquetWriter.CompressionType = parquet.CompressionCodec_SNAPPY

	for record := range records {
		if err := parquetWriter.Write(record); err != nil {
			return err
		}
	}
	if err := parquetWriter.WriteStop(); err != nil {
		return err
	}
	return fileWriter.Close()
}

// ReadJournal loads every row of a decision journal.
func ReadJournal(path string, parallel int64) ([]DecisionRecord, error) {
	absPath := path
	if !filepath.IsAbs(path) {
		if resolved, err := filepath.Abs(path); err == nil {
			absPath = resolved
		}
	}
	fileReader, err := local.NewLocalFileReader(absPath)
	if err != nil {
		return nil, err
	}
	defer fileReader.Close()

	parquetReader, err := reader.NewParquetReader(fileReader, new(DecisionRecord), parallel)
	if err != nil {
		return nil, err
	}
	defer parquetReader.ReadStop()

	num := int(parquetReader.GetNumRows())
	records := make([]DecisionRecord, 0, num)
	batchSize := 1024
	for offset := 0; offset < num; offset += batchSize {
		remain := num - offset
		if remain < batchSize {
			batchSize = remain
		}
		batch := make([]DecisionRecord, batchSize)
		if err := parquetReader.Read(&batch); err != nil {
			return nil, err
		}
		records = append(records, batch...)
	}
	return records, nil
}
