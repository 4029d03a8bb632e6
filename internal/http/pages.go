package http

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dacsang97/mdbind/internal/models"
	"github.com/dacsang97/mdbind/pkg/utils"
	"github.com/samber/lo"
)

// GetChapterPages retrieves the ordered page image URLs of a chapter from
// the at-home server. Quality is chosen by the caller, not negotiated.
func (c *Client) GetChapterPages(ctx context.Context, chapterID string, quality models.Quality) ([]string, error) {
	fail := func(op string, err error) ([]string, error) {
		return nil, &models.PageFetchError{ChapterID: chapterID, Op: op, Err: err}
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", chapterID).
		Get("/at-home/server/{id}")
	if err != nil {
		return fail("request", err)
	}

	var payload models.AtHomeResponse
	if err := utils.HandleJSONResponse(resp, &payload, "API: unable to retrieve at-home server"); err != nil {
		return fail("response", err)
	}

	urls, err := PageURLs(payload, quality)
	if err != nil {
		return fail("validate", err)
	}
	return urls, nil
}

// PageURLs builds base/quality/hash/filename for every file of the selected
// quality tier, in server order.
func PageURLs(payload models.AtHomeResponse, quality models.Quality) ([]string, error) {
	if payload.Result != "ok" {
		return nil, resultError(payload.Result, payload.Errors)
	}
	if payload.BaseURL == nil || !utils.IsAbsoluteURL(*payload.BaseURL) {
		return nil, errors.New("missing or relative baseUrl")
	}
	if payload.Chapter == nil {
		return nil, errors.New("missing chapter")
	}
	if payload.Chapter.Hash == nil || *payload.Chapter.Hash == "" {
		return nil, errors.New("missing chapter.hash")
	}

	files := payload.Chapter.Files(quality)
	if lo.Contains(files, "") {
		return nil, fmt.Errorf("empty filename in chapter.%s", lo.Ternary(quality == models.QualityCompressed, "dataSaver", "data"))
	}

	base := strings.TrimSuffix(*payload.BaseURL, "/")
	hash := *payload.Chapter.Hash
	return lo.Map(files, func(file string, _ int) string {
		return fmt.Sprintf("%s/%s/%s/%s", base, quality.Segment(), hash, file)
	}), nil
}
