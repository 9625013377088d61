// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"flag"
	"io/ioutil"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/devblok/vkscene/src/asset"
	"github.com/devblok/vkscene/src/utility/kar"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func init() {
	currentUserName = "unknown"
	if u, err := user.Current(); err == nil && u.Name != "" {
		currentUserName = u.Name
	}
}

var (
	currentUserName string
	author          = flag.String("author", "", "Set the author of the package when compressing")
	version         = flag.Int64("version", 1, "Archive version number to create it with")
	extract         = flag.String("e", "", "Extract the file given")
	compress        = flag.String("c", "", "Compress the given folder")
	dstFile         = flag.String("f", "out.kar", "Destination file")
	dstDir          = flag.String("d", ".", "Destination directory when extracting")
	silent          = flag.Bool("s", false, "Silent")
)

func main() {
	flag.Parse()
	if *silent {
		log.SetLevel(log.WarnLevel)
	}

	if *extract != "" && *compress != "" {
		log.Fatal("only one operation at a time")
	}

	switch {
	case *extract != "":
		if err := extractFiles(*extract, *dstDir); err != nil {
			log.WithError(err).Fatal("extract")
		}
	case *compress != "":
		if err := compressFiles(*compress, *dstFile); err != nil {
			log.WithError(err).Fatal("compress")
		}
	default:
		flag.PrintDefaults()
	}
}

func compressFiles(root, out string) error {
	if _, err := os.Stat(out); err == nil {
		return errors.New("destination file exists, will not overwrite")
	}

	var filesToCompress []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		filesToCompress = append(filesToCompress, path)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "walk")
	}

	name := *author
	if name == "" {
		name = currentUserName
	}
	karBuilder, err := kar.NewBuilder(kar.Header{
		Author:      name,
		DateCreated: time.Now().Unix(),
		Version:     *version,
	})
	if err != nil {
		return err
	}
	defer karBuilder.Close()

	for _, ftc := range filesToCompress {
		rel, err := filepath.Rel(root, ftc)
		if err != nil {
			return err
		}
		entry, err := asset.Clean(rel)
		if err != nil {
			return err
		}
		if err := addFile(karBuilder, entry, ftc); err != nil {
			return err
		}
		log.WithField("entry", entry).Info("added")
	}

	dst, err := os.Create(out)
	if err != nil {
		return err
	}
	defer dst.Close()

	written, err := karBuilder.WriteTo(dst)
	if err != nil {
		return errors.Wrap(err, out)
	}
	log.WithFields(log.Fields{"file": out, "entries": karBuilder.Len(), "bytes": written}).Info("archive written")
	return nil
}

func addFile(b *kar.Builder, entry, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return errors.Wrap(b.Add(entry, f), path)
}

func extractFiles(archive, dir string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	a, err := kar.Open(f)
	if err != nil {
		return errors.Wrap(err, archive)
	}

	for _, name := range a.Names() {
		entry, err := asset.Clean(name)
		if err != nil {
			return err
		}
		data, err := a.ReadAll(name)
		if err != nil {
			return errors.Wrap(err, name)
		}
		target := filepath.Join(dir, filepath.FromSlash(entry))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := ioutil.WriteFile(target, data, 0644); err != nil {
			return err
		}
		log.WithField("entry", entry).Info("extracted")
	}
	return nil
}
