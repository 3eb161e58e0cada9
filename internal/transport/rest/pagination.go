package rest

import (
	"fmt"
	"net/http"
	"strconv"
)

// parsePage reads the skip/limit query parameters every listing endpoint
// accepts. skip defaults to 0, limit defaults to 0 (query.Service applies
// its own default); both must be non-negative, and limit additionally
// can't exceed query.MaxLimit -- query.Service clamps that silently, so
// this only rejects outright garbage.
func parsePage(r *http.Request) (skip, limit int, err error) {
	q := r.URL.Query()

	if s := q.Get("skip"); s != "" {
		skip, err = strconv.Atoi(s)
		if err != nil || skip < 0 {
			return 0, 0, fmt.Errorf("skip must be a non-negative integer")
		}
	}

	if s := q.Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 0 {
			return 0, 0, fmt.Errorf("limit must be a non-negative integer")
		}
	}

	return skip, limit, nil
}
