package notion

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
)

// textBlocks are the block types whose rich text is study content.
var textBlocks = map[notionapi.BlockType]bool{
	notionapi.BlockTypeParagraph:        true,
	notionapi.BlockTypeHeading1:         true,
	notionapi.BlockTypeHeading2:         true,
	notionapi.BlockTypeHeading3:         true,
	notionapi.BlockTypeBulletedListItem: true,
	notionapi.BlockTypeNumberedListItem: true,
	notionapi.BlockTypeToDo:             true,
	notionapi.BlockTypeToggle:           true,
	notionapi.BlockTypeQuote:            true,
	notionapi.BlockTypeCallout:          true,
}

// FetchContent returns the text of a page, including child pages up to
// MaxDepth levels down.
func (c *Client) FetchContent(ctx context.Context, id string) (string, error) {
	lines, err := c.pageLines(ctx, notionapi.BlockID(id), 0)
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

func (c *Client) pageLines(ctx context.Context, id notionapi.BlockID, depth int) ([]string, error) {
	if depth > MaxDepth {
		return nil, nil
	}

	var lines []string
	var cursor notionapi.Cursor
	for {
		resp, err := c.api.Block.GetChildren(ctx, id, &notionapi.Pagination{StartCursor: cursor, PageSize: pageSize})
		if err != nil {
			// Partial content from nested pages beats none.
			if depth > 0 || len(lines) > 0 {
				c.logger.Warn("notion block listing truncated", "block", id, "depth", depth, "error", err)
				return lines, nil
			}
			return nil, err
		}

		for _, b := range resp.Results {
			switch blk := b.(type) {
			case *notionapi.ChildPageBlock:
				if depth >= MaxDepth {
					continue
				}
				title := blk.ChildPage.Title
				if title == "" {
					title = "Sub-page"
				}
				child, err := c.pageLines(ctx, blk.GetID(), depth+1)
				if err != nil {
					return nil, err
				}
				lines = append(lines, "", "--- Sub-page: "+title+" ---")
				lines = append(lines, child...)
				lines = append(lines, "--- End sub-page: "+title+" ---", "")
			case *notionapi.CodeBlock:
				if text := plainText(blk.Code.RichText); text != "" {
					lines = append(lines, text)
				}
			default:
				if !textBlocks[b.GetType()] {
					continue
				}
				if text := b.GetRichTextString(); text != "" {
					lines = append(lines, text)
				}
			}
		}

		if !resp.HasMore || resp.NextCursor == "" {
			return lines, nil
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}
}
