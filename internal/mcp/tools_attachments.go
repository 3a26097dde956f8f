package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ===== ATTACHMENT TOOLS =====

type attachmentContentInput struct {
	IssueID      string `json:"issue_id" jsonschema:"Issue identifier like 'DEMO-123'"`
	AttachmentID string `json:"attachment_id" jsonschema:"Attachment ID like '1-456' (listed by get_issue_raw)"`
}

type attachmentContentOutput struct {
	Content             string  `json:"content" jsonschema:"File content encoded as base64"`
	SizeBytesOriginal   int     `json:"size_bytes_original"`
	SizeBytesBase64     int     `json:"size_bytes_base64"`
	Filename            string  `json:"filename"`
	MimeType            string  `json:"mime_type"`
	SizeIncreasePercent float64 `json:"size_increase_percent"`
	Status              string  `json:"status"`
}

func (s *Server) registerAttachmentTools() {
	addTool(s, &ToolMetadata{
		Name:        "get_attachment_content",
		Description: "Download an attachment as base64 with size and format metadata, for originals up to 750KB",
		Category:    CategoryAttachments,
		Keywords:    []string{"attachment", "download", "file", "base64"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args attachmentContentInput) (*mcp.CallToolResult, attachmentContentOutput, error) {
		if args.IssueID == "" || args.AttachmentID == "" {
			return errorResult(fmt.Errorf("both issue_id and attachment_id are required"), nil), attachmentContentOutput{}, nil
		}
		issueID := s.normalizeID(args.IssueID)

		att, err := s.issues.GetAttachmentContent(ctx, issueID, args.AttachmentID)
		if err != nil {
			return errorResult(err, map[string]any{
				"issue_id":      issueID,
				"attachment_id": args.AttachmentID,
			}), attachmentContentOutput{}, nil
		}

		encoded := base64.StdEncoding.EncodeToString(att.Content)

		// Base64 inflates content by roughly a third; report the exact
		// overhead so callers can judge transfer cost.
		increase := 0.0
		if len(att.Content) > 0 {
			increase = math.Round((float64(len(encoded))/float64(len(att.Content))-1)*1000) / 10
		}

		out := attachmentContentOutput{
			Content:             encoded,
			SizeBytesOriginal:   len(att.Content),
			SizeBytesBase64:     len(encoded),
			Filename:            att.Name,
			MimeType:            att.MimeType,
			SizeIncreasePercent: increase,
			Status:              "success",
		}
		return jsonResult(out), out, nil
	})
}
