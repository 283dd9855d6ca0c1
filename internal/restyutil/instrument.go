// Package restyutil dumps the http exchanges of a resty client so scraper
// breakage can be diagnosed against the pages that were actually served.
package restyutil

import (
	"fmt"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type InstrumentOutput interface {
	Write(id string, contents string)
}

// DumpResponses writes every response the client receives to output, one
// message per response numbered in arrival order. A nil output is a no-op.
func DumpResponses(client *resty.Client, output InstrumentOutput) {
	if output == nil {
		return
	}

	var idcounter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := atomic.AddUint64(&idcounter, 1)
		output.Write(fmt.Sprintf("%06d.http", id), formatHttpMessage(res))
		return nil
	})
}
