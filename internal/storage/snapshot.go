package storage

import (
	"bytes"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rohmanhakim/docs-link-crawler/internal/mdconvert"
	"github.com/rohmanhakim/docs-link-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-link-crawler/pkg/failure"
	"github.com/rohmanhakim/docs-link-crawler/pkg/fileutil"
	"github.com/rohmanhakim/docs-link-crawler/pkg/hashutil"
)

/*
Snapshot layout
- <outputDir>/<url_hash>.md, url_hash = first 12 hex chars of the canonical URL hash
- YAML frontmatter carrying the source URL
- Reruns overwrite the same file for the same URL
*/

const urlHashLength = 12

type SnapshotWriter interface {
	Write(
		outputDir string,
		canonicalURL string,
		depth int,
		doc mdconvert.ConversionResult,
		hashAlgo hashutil.HashAlgo,
	) (WriteResult, failure.ClassifiedError)
}

var _ SnapshotWriter = (*SnapshotSink)(nil)

type SnapshotSink struct {
	metadataSink metadata.MetadataSink
}

func NewSnapshotSink(metadataSink metadata.MetadataSink) SnapshotSink {
	return SnapshotSink{
		metadataSink: metadataSink,
	}
}

func (s *SnapshotSink) Write(
	outputDir string,
	canonicalURL string,
	depth int,
	doc mdconvert.ConversionResult,
	hashAlgo hashutil.HashAlgo,
) (WriteResult, failure.ClassifiedError) {
	writeResult, storageError := writeSnapshot(outputDir, canonicalURL, depth, doc, hashAlgo)
	if storageError != nil {
		s.metadataSink.RecordError(
			time.Now(),
			"storage",
			"SnapshotSink.Write",
			mapStorageErrorToMetadataCause(storageError),
			storageError.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, canonicalURL),
				metadata.NewAttr(metadata.AttrWritePath, storageError.Path),
			},
		)
		return WriteResult{}, storageError
	}
	s.metadataSink.RecordArtifact(
		metadata.ArtifactSnapshot,
		writeResult.Path(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrWritePath, writeResult.Path()),
			metadata.NewAttr(metadata.AttrURL, canonicalURL),
		},
	)
	return writeResult, nil
}

func writeSnapshot(
	outputDir string,
	canonicalURL string,
	depth int,
	doc mdconvert.ConversionResult,
	hashAlgo hashutil.HashAlgo,
) (WriteResult, *StorageError) {
	urlHash, err := hashutil.ShortHash([]byte(canonicalURL), hashAlgo, urlHashLength)
	if err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseHashComputationFailed,
		}
	}

	content, err := renderSnapshot(canonicalURL, depth, doc)
	if err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseWriteFailure,
		}
	}

	contentHash, err := hashutil.HashBytes(doc.GetMarkdownContent(), hashAlgo)
	if err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseHashComputationFailed,
		}
	}

	fullPath := filepath.Join(outputDir, urlHash+".md")
	if err := fileutil.WriteFileAtomic(fullPath, content, 0644); err != nil {
		return WriteResult{}, fromFileError(err, fullPath)
	}

	return NewWriteResult(urlHash, fullPath, contentHash, 1), nil
}

func renderSnapshot(canonicalURL string, depth int, doc mdconvert.ConversionResult) ([]byte, error) {
	front, err := yaml.Marshal(snapshotFrontmatter{
		Source:    canonicalURL,
		Title:     doc.Title(),
		Depth:     depth,
		FetchedAt: time.Now().UTC().Truncate(time.Second),
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(front)
	buf.WriteString("---\n\n")
	buf.Write(doc.GetMarkdownContent())
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
