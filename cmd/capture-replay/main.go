// mocap-recorder - record motion capture streams from NatNet servers
//  Copyright (C) 2026, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.


package main

import (
	"fmt"
	"io"
	"log"
	"os"

	arg "github.com/alexflint/go-arg"
	yaml "gopkg.in/yaml.v2"

	"github.com/TheCacophonyProject/mocap-recorder/capture"
	"github.com/TheCacophonyProject/mocap-recorder/natnet"
)

var version = "<not set>"

type Args struct {
	Files []string `arg:"positional,required" help:"capture files to decode"`
	YAML  bool     `arg:"-y,--yaml" help:"print every decoded record as YAML"`
	Quiet bool     `arg:"-q,--quiet" help:"only print the totals for each file"`
	Poses bool     `arg:"-p,--poses" help:"print the pose of each rigid body in every frame"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	var args Args
	arg.MustParse(&args)
	return args
}

func main() {
	err := runMain()
	if err != nil {
		log.Fatal(err)
	}
}

func runMain() error {
	args := procArgs()
	log.SetFlags(0)

	for _, filename := range args.Files {
		totals, err := replayFile(filename, os.Stdout, args)
		if err != nil {
			return fmt.Errorf("%s: %v", filename, err)
		}
		fmt.Printf("%s: %s\n", filename, totals)
	}
	return nil
}

func replayFile(filename string, out io.Writer, args Args) (*totals, error) {
	r, err := capture.Open(filename)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	header := r.Header()
	profile, err := natnet.ProfileFor(header.Version)
	if err != nil {
		return nil, err
	}
	profile.SetLogFunc(log.Printf)
	fmt.Fprintf(out, "device %q (%d), server %s, NatNet %s, %s profile, started %s, session %s\n",
		header.DeviceName, header.DeviceID, header.ServerApp, header.Version,
		profile.Name, header.Timestamp.Format("2006-01-02 15:04:05.000000"), header.SessionID)

	return replay(r, profile, out, args)
}

// recordSource is satisfied by *capture.Reader.
type recordSource interface {
	Next() (*capture.Record, error)
}

func replay(r recordSource, profile *natnet.Profile, out io.Writer, args Args) (*totals, error) {
	t := new(totals)
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			return t, err
		}

		var decoded interface{}
		var summary string
		switch rec.Kind {
		case capture.KindFrame:
			frame, err := profile.DecodeFrame(rec.Payload)
			if err != nil {
				t.badFrames++
				summary = fmt.Sprintf("bad frame: %v", err)
				break
			}
			t.addFrame(frame)
			decoded = frame
			summary = summariseFrame(frame)
		case capture.KindDescriptors:
			descriptors, err := profile.DecodeDescriptors(rec.Payload)
			if err != nil {
				t.badDescriptors++
				summary = fmt.Sprintf("bad model definitions: %v", err)
				break
			}
			t.descriptors++
			decoded = descriptors
			summary = summariseDescriptors(descriptors)
		default:
			t.unknown++
			summary = fmt.Sprintf("skipping %s record", rec.Kind)
		}

		if args.Quiet {
			continue
		}
		fmt.Fprintf(out, "%12s %-11s %s\n", rec.Offset, rec.Kind, summary)
		if frame, ok := decoded.(*natnet.Frame); ok && args.Poses {
			for _, line := range rigidBodyPoses(frame) {
				fmt.Fprintf(out, "%12s %-11s   %s\n", "", "", line)
			}
		}
		if args.YAML && decoded != nil {
			buf, err := yaml.Marshal(decoded)
			if err != nil {
				return t, err
			}
			out.Write(buf)
		}
	}
}
