package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestWithMetadataRendersCatalogTemplate(t *testing.T) {
	err := WithMetadata(CodeInvalidArgCount, map[string]string{"Cmd": "its"})
	if err.Error() != "cy.its() does not accept additional arguments." {
		t.Fatalf("message = %q", err.Error())
	}
	if err.Metadata["Cmd"] != "its" {
		t.Fatalf("metadata cmd = %q, want its", err.Metadata["Cmd"])
	}
}

func TestRenderUnknownCodeKeepsMetadata(t *testing.T) {
	got := Render("custom.code", map[string]string{"b": "2", "a": "1"})
	if got != "custom.code: a=1 b=2" {
		t.Fatalf("render = %q", got)
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("then: %w", WithMetadata(CodeMixedSyncAsync, map[string]string{"Value": "1"}))
	if !HasCode(err, CodeMixedSyncAsync) {
		t.Fatal("expected wrapped error to match code")
	}
	if HasCode(err, CodeTimedOut) {
		t.Fatal("expected different code not to match")
	}
	code, ok := CodeOf(err)
	if !ok || code != CodeMixedSyncAsync {
		t.Fatalf("code = %q, %v", code, ok)
	}
}

func TestWrapWithMetadataUnwraps(t *testing.T) {
	cause := stderrors.New("deadline")
	err := WrapWithMetadata(CodeTimedOut, map[string]string{"Cmd": "then", "Timeout": "1s", "Func": "fn"}, cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if !strings.Contains(err.Error(), "cy.then() timed out") {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestCommandKeyedCodes(t *testing.T) {
	if SubjectNullOrUndefined("invoke") != CodeInvokeSubjectNullOrUndefined {
		t.Fatal("expected invoke subject code")
	}
	if SubjectNullOrUndefined("its") != CodeItsSubjectNullOrUndefined {
		t.Fatal("expected its subject code")
	}
	if NullOrUndefinedPropValue("invoke") != CodeInvokeNullOrUndefinedPropValue {
		t.Fatal("expected invoke value code")
	}
	if NullOrUndefinedPropValue("custom") != CodeItsNullOrUndefinedPropValue {
		t.Fatal("expected its value code for other commands")
	}
}
