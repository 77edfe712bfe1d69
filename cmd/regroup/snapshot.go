package main

// This file defines the snapshot writer and reader. A snapshot stores the
// final assignment rows plus the options, score breakdown and run counters,
// so downstream tooling can re-score or diff runs without re-parsing the CSV
// tables.

import (
	"bytes"
	"context"
	"encoding/gob"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/grailbio/regroup/assign"
	"github.com/grailbio/regroup/encoding/rostercsv"
)

const (
	// <snapshotVersionHeader, snapshotVersion> is stored in a recordio header.
	snapshotVersionHeader = "regroupversion"
	snapshotVersion       = "REGROUP_V1"
)

// snapshotHeader is stored in the trailer section of the recordio file.
type snapshotHeader struct {
	// Opts is the set of options the assignment was produced with.
	Opts assign.Opts
	// Score is the final objective breakdown.
	Score assign.Score
	// Stats is the run counters.
	Stats assign.Stats
}

func encodeGOB(gw *gob.Encoder, v interface{}) {
	if err := gw.Encode(v); err != nil {
		panic(err)
	}
}

func decodeGOB(gr *gob.Decoder, v interface{}) {
	if err := gr.Decode(v); err != nil {
		panic(err)
	}
}

// writeSnapshot writes one record per assignment row, with the header in the
// recordio trailer. Any error will crash the process.
func writeSnapshot(ctx context.Context, path string, rows []rostercsv.Student, hdr snapshotHeader) {
	recordiozstd.Init()
	out, err := file.Create(ctx, path)
	if err != nil {
		log.Panicf("snapshot create %v: %v", path, err)
	}
	w := recordio.NewWriter(out.Writer(ctx), recordio.WriterOpts{
		Transformers: []string{recordiozstd.Name},
	})
	w.AddHeader(snapshotVersionHeader, snapshotVersion)
	w.AddHeader(recordio.KeyTrailer, true)
	for _, row := range rows {
		b := bytes.NewBuffer(nil)
		encodeGOB(gob.NewEncoder(b), row)
		w.Append(b.Bytes())
	}
	b := bytes.NewBuffer(nil)
	encodeGOB(gob.NewEncoder(b), hdr)
	w.SetTrailer(b.Bytes())
	if err := w.Finish(); err != nil {
		log.Panicf("snapshot close %v: %v", path, err)
	}
	if err := out.Close(ctx); err != nil {
		log.Panicf("snapshot close %v: %v", path, err)
	}
	log.Printf("wrote snapshot of %d rows to %s", len(rows), path)
}

// readSnapshot reads back a file produced by writeSnapshot.
func readSnapshot(ctx context.Context, path string) ([]rostercsv.Student, snapshotHeader) {
	in, err := file.Open(ctx, path)
	if err != nil {
		log.Panicf("snapshot open %v: %v", path, err)
	}
	recordiozstd.Init()
	r := recordio.NewScanner(in.Reader(ctx), recordio.ScannerOpts{})
	versionFound := false
	for _, kv := range r.Header() {
		if kv.Key == snapshotVersionHeader {
			if kv.Value.(string) != snapshotVersion {
				log.Panicf("snapshot version mismatch, got %v, expect %v", kv.Value, snapshotVersion)
			}
			versionFound = true
			break
		}
	}
	if !versionFound {
		log.Panic(snapshotVersionHeader + " not found")
	}
	hdr := snapshotHeader{}
	decodeGOB(gob.NewDecoder(bytes.NewReader(r.Trailer())), &hdr)
	var rows []rostercsv.Student
	for r.Scan() {
		row := rostercsv.Student{}
		decodeGOB(gob.NewDecoder(bytes.NewReader(r.Get().([]byte))), &row)
		rows = append(rows, row)
	}
	if err := r.Err(); err != nil {
		log.Panicf("snapshot read %v: %v", path, err)
	}
	if err := in.Close(ctx); err != nil {
		log.Panicf("snapshot close %v: %v", path, err)
	}
	return rows, hdr
}
