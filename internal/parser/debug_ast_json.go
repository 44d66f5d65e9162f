package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"lisp/internal/ast"
	"os"
)

// WalkAST recursively traverses an AST and serializes it into a machine-centric map structure.
func WalkAST(node ast.Node) interface{} {
	switch n := node.(type) {
	case nil:
		return nil

	case *ast.Program:
		elements := make([]interface{}, len(n.Elements))
		for i, e := range n.Elements {
			elements[i] = WalkAST(e)
		}
		return map[string]interface{}{
			"type":     "Program",
			"elements": elements,
		}

	case *ast.Identifier:
		return map[string]interface{}{
			"type":     "Identifier",
			"position": n.Token.Position,
			"value":    n.Value,
		}

	case *ast.Literal:
		return map[string]interface{}{
			"type":     "Literal",
			"position": n.Token.Position,
			"token":    string(n.Token.Type),
			"value":    n.Value,
		}

	case *ast.List:
		return map[string]interface{}{
			"type":     "List",
			"position": n.Token.Position,
			"elements": walkElements(n.Elements),
		}

	case *ast.Quote:
		return map[string]interface{}{
			"type":     "Quote",
			"position": n.Token.Position,
			"element":  WalkAST(n.Element),
		}

	case *ast.SetQ:
		return map[string]interface{}{
			"type":     "SetQ",
			"position": n.Token.Position,
			"assignee": n.Assignee.Value,
			"value":    WalkAST(n.Value),
		}

	case *ast.Func:
		return map[string]interface{}{
			"type":       "Func",
			"position":   n.Token.Position,
			"name":       n.Name.Value,
			"parameters": walkParameters(n.Parameters),
			"body":       WalkAST(n.Body),
		}

	case *ast.Lambda:
		return map[string]interface{}{
			"type":       "Lambda",
			"position":   n.Token.Position,
			"parameters": walkParameters(n.Parameters),
			"body":       WalkAST(n.Body),
		}

	case *ast.Prog:
		return map[string]interface{}{
			"type":       "Prog",
			"position":   n.Token.Position,
			"parameters": walkParameters(n.Parameters),
			"body":       WalkAST(n.Body),
		}

	case *ast.Cond:
		m := map[string]interface{}{
			"type":         "Cond",
			"position":     n.Token.Position,
			"condition":    WalkAST(n.Condition),
			"trueArgument": WalkAST(n.TrueArgument),
		}
		if n.FalseArgument != nil {
			m["falseArgument"] = WalkAST(n.FalseArgument)
		}
		return m

	case *ast.While:
		return map[string]interface{}{
			"type":      "While",
			"position":  n.Token.Position,
			"condition": WalkAST(n.Condition),
			"body":      WalkAST(n.Body),
		}

	case *ast.Return:
		return map[string]interface{}{
			"type":     "Return",
			"position": n.Token.Position,
			"value":    WalkAST(n.Value),
		}

	case *ast.Break:
		return map[string]interface{}{
			"type":     "Break",
			"position": n.Token.Position,
		}
	}

	return map[string]interface{}{
		"type":  fmt.Sprintf("%T", node),
		"token": node.TokenLiteral(),
	}
}

func walkElements(elements []ast.Element) []interface{} {
	out := make([]interface{}, len(elements))
	for i, e := range elements {
		out[i] = WalkAST(e)
	}
	return out
}

func walkParameters(params []*ast.Identifier) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Value
	}
	return names
}

func RenderASTAsJSON(node ast.Node) (string, error) {
	astMap := WalkAST(node)
	buf := new(bytes.Buffer)
	encoder := json.NewEncoder(buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(astMap); err != nil {
		return "", fmt.Errorf("failed to encode JSON: %v", err)
	}
	return buf.String(), nil
}

func WriteASTToJSON(node ast.Node, filename string) error {
	rendered, err := RenderASTAsJSON(node)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("failed to write JSON: %v", err)
	}
	return nil
}
