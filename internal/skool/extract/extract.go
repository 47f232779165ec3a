// Package extract locates the raw module and post records inside a loaded
// page. It does not interpret the records, see package normalize for that.
package extract

import (
	"github.com/chrisw65/market-profile/internal/skool/rawrecord"
)

// PageProps returns nextData.props.pageProps when every step along the way is
// a JSON object.
func PageProps(nextData any) (rawrecord.Record, bool) {
	root, ok := rawrecord.AsRecord(nextData)
	if !ok {
		return nil, false
	}
	props, ok := rawrecord.Object(root, "props")
	if !ok {
		return nil, false
	}
	return rawrecord.Object(props, "pageProps")
}

func arrayUnder(rec rawrecord.Record, key string) ([]any, bool) {
	arr, ok := rec[key].([]any)
	return arr, ok
}
