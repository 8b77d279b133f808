package email

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"

	"github.com/appneural-ajith/ai-email-assistant/internal/model"
	"github.com/appneural-ajith/ai-email-assistant/internal/parttree"
)

// ParseMIME parses an RFC 5322 message into its top-level headers and a
// part tree. Leaf payloads are transfer-decoded, converted to UTF-8 for
// text parts and stored URL-safe base64 encoded. Nested multiparts are
// read with an explicit stack in stream order.
func ParseMIME(raw []byte) (model.Headers, *parttree.Tree, error) {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return nil, nil, fmt.Errorf("parsing message: %w", err)
	}

	headers := headerList(entity.Header)

	rootPart, err := entityPart(entity)
	if err != nil {
		return nil, nil, err
	}
	tree := parttree.New(rootPart)

	type frame struct {
		mr  message.MultipartReader
		idx int
	}

	mr := entity.MultipartReader()
	if mr == nil {
		return headers, tree, nil
	}

	stack := []frame{{mr, parttree.Root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]

		child, err := top.mr.NextPart()
		if err == io.EOF {
			stack = stack[:len(stack)-1]
			continue
		}
		if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
			return nil, nil, fmt.Errorf("reading part: %w", err)
		}

		p, err := entityPart(child)
		if err != nil {
			return nil, nil, err
		}
		idx, err := tree.Add(top.idx, p)
		if err != nil {
			return nil, nil, err
		}
		if p.Kind == parttree.KindContainer {
			stack = append(stack, frame{child.MultipartReader(), idx})
		}
	}

	return headers, tree, nil
}

// entityPart describes one entity. Multipart entities become containers;
// their body is consumed later through their MultipartReader.
func entityPart(e *message.Entity) (parttree.Part, error) {
	contentType := e.Header.Get("Content-Type")
	if contentType == "" {
		contentType = parttree.TypePlain
	}

	if e.MultipartReader() != nil {
		return parttree.Container(contentType), nil
	}

	body, err := io.ReadAll(e.Body)
	if err != nil {
		return parttree.Part{}, fmt.Errorf("reading %s body: %w", contentType, err)
	}

	var data string
	if len(body) > 0 {
		data = base64.URLEncoding.EncodeToString(body)
	}

	p := parttree.Leaf(contentType, data)
	if name := filename(e.Header); name != "" {
		p = p.WithFile(name, int64(len(body)))
	}
	return p, nil
}

// filename returns the Content-Disposition filename, or the Content-Type
// name parameter used by older clients.
func filename(h message.Header) string {
	if _, params, err := h.ContentDisposition(); err == nil && params["filename"] != "" {
		return decodeWord(params["filename"])
	}
	if _, params, err := h.ContentType(); err == nil && params["name"] != "" {
		return decodeWord(params["name"])
	}
	return ""
}

var wordDecoder = mime.WordDecoder{CharsetReader: message.CharsetReader}

func decodeWord(s string) string {
	if out, err := wordDecoder.DecodeHeader(s); err == nil {
		return out
	}
	return s
}

// headerList keeps every header field in message order with RFC 2047
// words decoded.
func headerList(h message.Header) model.Headers {
	var out model.Headers
	fields := h.Fields()
	for fields.Next() {
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		out = append(out, model.Header{Name: fields.Key(), Value: value})
	}
	return out
}
