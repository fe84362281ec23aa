package formset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrMissingContainer is returned when the element rows are appended to is absent
	ErrMissingContainer = errors.New("formset container not found")

	// ErrMissingTotalForms is returned when the hidden total-forms field is absent
	ErrMissingTotalForms = errors.New("formset total-forms field not found")

	// ErrInvalidTotalForms is returned when the total-forms field does not hold a count
	ErrInvalidTotalForms = errors.New("formset total-forms field is not a valid count")

	// ErrRowNotFound is returned when an element has no encompassing row
	ErrRowNotFound = errors.New("formset row not found")
)

// Controller adds rows to one formset inside a parsed document. It owns the
// row count: the hidden total-forms field is written from it after every
// insertion and never read again once the controller exists.
type Controller struct {
	kind      Kind
	container *goquery.Selection
	total     *goquery.Selection
	count     int
}

// NewController resolves the container and the total-forms field of kind in
// doc. A document missing either one is a page setup defect, so it fails
// instead of returning a controller that does nothing.
func NewController(doc *goquery.Document, kind Kind) (*Controller, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document for formset %q", ErrMissingContainer, kind.Prefix)
	}

	container := doc.Find(kind.Container).First()
	if container.Length() == 0 {
		return nil, fmt.Errorf("%w: selector %q for formset %q", ErrMissingContainer, kind.Container, kind.Prefix)
	}

	id := TotalFormsID(kind.Prefix)
	total := doc.Find(`input[id="` + id + `"]`).First()
	if total.Length() == 0 {
		return nil, fmt.Errorf("%w: #%s", ErrMissingTotalForms, id)
	}

	raw, _ := total.Attr("value")
	count, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || count < 0 {
		return nil, fmt.Errorf("%w: #%s has value %q", ErrInvalidTotalForms, id, raw)
	}

	return &Controller{
		kind:      kind,
		container: container,
		total:     total,
		count:     count,
	}, nil
}

// AddRow appends an empty row numbered with the current count as the last
// child of the container, then increments the count by one and writes it to
// the total-forms field. It returns the index given to the new row.
func (c *Controller) AddRow() (RowIndex, error) {
	index := c.count

	row, err := c.kind.Render(index, nil)
	if err != nil {
		return 0, err
	}

	c.container.AppendHtml(row)
	c.count++
	c.total.SetAttr("value", strconv.Itoa(c.count))

	return RowIndex(index), nil
}

// Count returns the number of rows the formset will submit
func (c *Controller) Count() int {
	return c.count
}

// Kind returns the formset this controller manages
func (c *Controller) Kind() Kind {
	return c.kind
}

// Rows returns the row elements currently inside the container
func (c *Controller) Rows() *goquery.Selection {
	return c.container.ChildrenFiltered("." + RowClass)
}

// DeleteCheckbox returns the delete checkbox of the row at index
func (c *Controller) DeleteCheckbox(index RowIndex) *goquery.Selection {
	id := FieldID(c.kind.Prefix, int(index), DeleteField)
	return c.container.Find(`input[id="` + id + `"]`).First()
}

// MarkRowForDeletion toggles the removed state of the row enclosing
// checkbox. The row is hidden rather than detached so its fields, including
// the delete flag, are still submitted. The checkbox's checked state follows
// the row. It returns true when the row is now marked as removed.
func MarkRowForDeletion(checkbox *goquery.Selection) (bool, error) {
	if checkbox == nil || checkbox.Length() == 0 {
		return false, fmt.Errorf("%w: empty selection", ErrRowNotFound)
	}
	checkbox = checkbox.First()

	row := checkbox.Closest("." + RowClass)
	if row.Length() == 0 {
		row = checkbox.Closest("p")
	}
	if row.Length() == 0 {
		name, _ := checkbox.Attr("name")
		return false, fmt.Errorf("%w: no row encloses %q", ErrRowNotFound, name)
	}

	if IsMarkedForDeletion(row) {
		row.RemoveClass(RemovedClass)
		row.RemoveAttr("hidden")
		checkbox.RemoveAttr("checked")
		return false, nil
	}

	row.AddClass(RemovedClass)
	row.SetAttr("hidden", "")
	checkbox.SetAttr("checked", "")
	return true, nil
}

// IsMarkedForDeletion reports whether row is in the removed state
func IsMarkedForDeletion(row *goquery.Selection) bool {
	return row.HasClass(RemovedClass)
}
