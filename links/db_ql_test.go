package links

import (
	"testing"
)

func TestQlLinkDB(t *testing.T) {
	db, err := NewQlLinks("memory")
	if err != nil {
		t.Fatalf("Received %s", err.Error())
	}
	runLinkDBSequence(t, db)
}
