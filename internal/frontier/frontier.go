package frontier

import (
	"net/url"

	"github.com/rohmanhakim/docs-link-crawler/pkg/urlutil"
)

/*
Frontier Responsibilities
  - Maintain BFS ordering
  - Deduplicate URLs over the whole crawl lifetime
  - Track crawl depth

It knows nothing about fetching, scope and exclusion policy, or storage.
It is a data structure owned by a single crawl run and is not safe for
concurrent use; the scheduler mutates it from one goroutine only.
*/
type Frontier struct {
	queue *FIFOQueue[CrawlToken]
	seen  Set[string]
}

func NewCrawlFrontier() *Frontier {
	return &Frontier{
		queue: NewFIFOQueue[CrawlToken](),
		seen:  NewSet[string](),
	}
}

// Submit enqueues the candidate unless an equivalent URL was submitted
// before. It reports whether the candidate was enqueued.
func (f *Frontier) Submit(candidate CrawlAdmissionCandidate) bool {
	target := urlutil.Canonicalize(candidate.targetURL)
	if !f.seen.AddIfAbsent(target.String()) {
		return false
	}
	f.queue.Enqueue(NewCrawlToken(target, candidate.discoveryMetadata.depth))
	return true
}

func (f *Frontier) Dequeue() (CrawlToken, bool) {
	return f.queue.Dequeue()
}

// DequeueBatch removes up to n tokens from the front, preserving order.
func (f *Frontier) DequeueBatch(n int) []CrawlToken {
	if n < 1 {
		n = 1
	}
	batch := make([]CrawlToken, 0, min(n, f.queue.Size()))
	for len(batch) < n {
		token, ok := f.queue.Dequeue()
		if !ok {
			break
		}
		batch = append(batch, token)
	}
	return batch
}

// Len is the number of tokens still waiting.
func (f *Frontier) Len() int {
	return f.queue.Size()
}

// SeenCount is the number of distinct URLs ever submitted.
func (f *Frontier) SeenCount() int {
	return f.seen.Size()
}

// Seen reports whether an equivalent URL was ever submitted.
func (f *Frontier) Seen(u url.URL) bool {
	return f.seen.Contains(urlutil.Key(u))
}
