package storage

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rohmanhakim/docs-link-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-link-crawler/pkg/failure"
	"github.com/rohmanhakim/docs-link-crawler/pkg/fileutil"
	"github.com/rohmanhakim/docs-link-crawler/pkg/hashutil"
)

/*
Output contract
- One absolute URL per line, newline terminated
- Visit order preserved
- File replaced atomically; readers never see a partial list
*/

type URLListWriter interface {
	Write(path string, urls []url.URL) (WriteResult, failure.ClassifiedError)
}

var _ URLListWriter = (*URLListSink)(nil)

type URLListSink struct {
	metadataSink metadata.MetadataSink
}

func NewURLListSink(metadataSink metadata.MetadataSink) URLListSink {
	return URLListSink{
		metadataSink: metadataSink,
	}
}

func (s *URLListSink) Write(path string, urls []url.URL) (WriteResult, failure.ClassifiedError) {
	content := FormatURLList(urls)

	if err := fileutil.WriteFileAtomic(path, content, 0644); err != nil {
		storageError := fromFileError(err, path)
		s.metadataSink.RecordError(
			time.Now(),
			"storage",
			"URLListSink.Write",
			mapStorageErrorToMetadataCause(storageError),
			storageError.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrWritePath, path),
			},
		)
		return WriteResult{}, storageError
	}

	contentHash, err := hashutil.HashBytes(content, hashutil.HashAlgoSHA256)
	if err != nil {
		contentHash = ""
	}
	result := NewWriteResult("", path, contentHash, len(urls))

	s.metadataSink.RecordArtifact(
		metadata.ArtifactURLList,
		path,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrWritePath, path),
			metadata.NewAttr(metadata.AttrCount, strconv.Itoa(len(urls))),
		},
	)
	return result, nil
}

// FormatURLList renders urls one per line in the given order.
func FormatURLList(urls []url.URL) []byte {
	var b strings.Builder
	for _, u := range urls {
		b.WriteString(u.String())
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
