package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	apperrors "crowdtags/pkg/errors"
)

// Phrase is an ordered sequence of words. Word order is significant.
type Phrase []string

// PhraseList holds the phrases a worker tagged with one tag. Its order is not
// significant; Sorted gives the normalized form.
type PhraseList []Phrase

// Action maps a tag to the phrases tagged with it in one worker submission.
type Action map[string]PhraseList

// Batch is the ordered list of actions stored in a single table cell.
type Batch []Action

// ShapeError reports a JSON value whose kind does not match the annotation model.
type ShapeError struct {
	Path string
	Want string
	Got  string
}

func (e *ShapeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("expected %s, got %s", e.Want, e.Got)
	}
	return fmt.Sprintf("%s: expected %s, got %s", e.Path, e.Want, e.Got)
}

// ComparePhrases orders phrases word by word; a proper prefix sorts first.
func ComparePhrases(a, b Phrase) int {
	return slices.Compare(a, b)
}

// Sorted returns a copy of l with its phrases in ascending order. l is not modified.
func (l PhraseList) Sorted() PhraseList {
	out := make(PhraseList, len(l))
	for i, p := range l {
		out[i] = slices.Clone(p)
	}
	slices.SortStableFunc(out, ComparePhrases)
	return out
}

// Tags returns the action's tags in ascending order.
func (a Action) Tags() []string {
	return slices.Sorted(maps.Keys(a))
}

// Sorted returns a copy of a with every phrase list sorted. a is not modified.
func (a Action) Sorted() Action {
	out := make(Action, len(a))
	for tag, phrases := range a {
		out[tag] = phrases.Sorted()
	}
	return out
}

// ParseBatch decodes the JSON text of one cell into a Batch. Malformed JSON is a
// decode error; well-formed JSON of the wrong shape is a type error.
func ParseBatch(data []byte) (Batch, error) {
	var batch Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, classify(err)
	}
	return batch, nil
}

// ParseAction decodes the JSON text of a single action.
func ParseAction(data []byte) (Action, error) {
	var action Action
	if err := json.Unmarshal(data, &action); err != nil {
		return nil, classify(err)
	}
	return action, nil
}

func classify(err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return apperrors.Decode("invalid JSON", err).WithDetails(map[string]any{"offset": syntaxErr.Offset})
	}
	var shapeErr *ShapeError
	if errors.As(err, &shapeErr) {
		return apperrors.Type("unexpected value shape", err).WithDetails(map[string]any{"path": shapeErr.Path})
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return apperrors.Type("unexpected value type", err)
	}
	return apperrors.Decode("invalid JSON", err)
}

func (b *Batch) UnmarshalJSON(data []byte) error {
	batch, err := decodeBatch(data)
	if err != nil {
		return err
	}
	*b = batch
	return nil
}

func (a *Action) UnmarshalJSON(data []byte) error {
	action, err := decodeAction(data, "")
	if err != nil {
		return err
	}
	*a = action
	return nil
}

func (l *PhraseList) UnmarshalJSON(data []byte) error {
	list, err := decodePhraseList(data, "")
	if err != nil {
		return err
	}
	*l = list
	return nil
}

func (p *Phrase) UnmarshalJSON(data []byte) error {
	phrase, err := decodePhrase(data, "")
	if err != nil {
		return err
	}
	*p = phrase
	return nil
}

func decodeBatch(data []byte) (Batch, error) {
	items, err := decodeArray(data, "", "a list of actions")
	if err != nil {
		return nil, err
	}
	batch := make(Batch, 0, len(items))
	for i, item := range items {
		action, err := decodeAction(item, indexPath("", i))
		if err != nil {
			return nil, err
		}
		batch = append(batch, action)
	}
	return batch, nil
}

func decodeAction(data []byte, path string) (Action, error) {
	data = bytes.TrimSpace(data)
	if err := expect(data, '{', path, "an object of tags"); err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	action := make(Action, len(fields))
	for tag, raw := range fields {
		phrases, err := decodePhraseList(raw, path+"["+strconv.Quote(tag)+"]")
		if err != nil {
			return nil, err
		}
		action[tag] = phrases
	}
	return action, nil
}

func decodePhraseList(data []byte, path string) (PhraseList, error) {
	items, err := decodeArray(data, path, "a list of phrases")
	if err != nil {
		return nil, err
	}
	list := make(PhraseList, 0, len(items))
	for i, item := range items {
		phrase, err := decodePhrase(item, indexPath(path, i))
		if err != nil {
			return nil, err
		}
		list = append(list, phrase)
	}
	return list, nil
}

func decodePhrase(data []byte, path string) (Phrase, error) {
	items, err := decodeArray(data, path, "a list of words")
	if err != nil {
		return nil, err
	}
	phrase := make(Phrase, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if err := expect(item, '"', indexPath(path, i), "a word"); err != nil {
			return nil, err
		}
		var word string
		if err := json.Unmarshal(item, &word); err != nil {
			return nil, err
		}
		phrase = append(phrase, word)
	}
	return phrase, nil
}

func decodeArray(data []byte, path, want string) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if err := expect(data, '[', path, want); err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func expect(data []byte, open byte, path, want string) error {
	if len(data) > 0 && data[0] == open {
		return nil
	}
	return &ShapeError{Path: path, Want: want, Got: kindOf(data)}
}

func kindOf(data []byte) string {
	if len(data) == 0 {
		return "nothing"
	}
	switch data[0] {
	case 'n':
		return "null"
	case 't', 'f':
		return "a boolean"
	case '"':
		return "a string"
	case '[':
		return "a list"
	case '{':
		return "an object"
	default:
		return "a number"
	}
}

func indexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
