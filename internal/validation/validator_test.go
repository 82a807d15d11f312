package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bookForm struct {
	Title       string `form:"title" validate:"required,max=512"`
	Code        string `form:"book_id" validate:"required"`
	TotalCopies int    `form:"total_copies" validate:"min=1"`
	Email       string `json:"email" validate:"omitempty,email"`
	Arrival     string `form:"arrival_time" validate:"omitempty,clock"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(bookForm{Title: "Dune", Code: "B-1", TotalCopies: 2, Arrival: "09:30"})
	assert.NoError(t, err)
}

func TestStruct_Messages(t *testing.T) {
	tests := []struct {
		name string
		form bookForm
		want string
	}{
		{"missing title", bookForm{Code: "B-1", TotalCopies: 1}, "Title is required"},
		{"missing book id", bookForm{Title: "Dune", TotalCopies: 1}, "Book id is required"},
		{"zero copies", bookForm{Title: "Dune", Code: "B-1"}, "Total copies must be at least 1"},
		{"bad email", bookForm{Title: "Dune", Code: "B-1", TotalCopies: 1, Email: "nope"}, "Email must be a valid email address"},
		{"bad clock", bookForm{Title: "Dune", Code: "B-1", TotalCopies: 1, Arrival: "25:00"}, "Arrival time must be a time in HH:MM format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.form)
			require.Error(t, err)

			var ve Errors
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.want, ve.First())
			assert.Equal(t, tt.want, Message(err))
		})
	}
}

func TestStruct_MultipleErrors(t *testing.T) {
	err := Struct(bookForm{})
	require.Error(t, err)

	var ve Errors
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve, 3)
	assert.Contains(t, err.Error(), "Title is required")
	assert.Contains(t, err.Error(), "; ")
}

func TestEmail(t *testing.T) {
	assert.True(t, Email("ada@example.com"))
	assert.True(t, Email("first.last+desk@lib.example.org"))
	assert.False(t, Email(""))
	assert.False(t, Email("not-an-email"))
	assert.False(t, Email("ada@"))
	assert.False(t, Email(strings.Repeat("a", 250)+"@example.com"))
}
