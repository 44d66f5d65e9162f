package parser

import (
	"fmt"
	"lisp/internal/ast"
	"os"
	"reflect"
	"strings"
)

// RenderASTAsText produces an indented S-expression view of the AST. A form
// stays on one line when none of its children nest deeper than one level;
// otherwise each child goes on its own line, one step further in.
func RenderASTAsText(node ast.Node, indent int) string {
	if node == nil || (reflect.ValueOf(node).Kind() == reflect.Ptr && reflect.ValueOf(node).IsNil()) {
		return "nil"
	}

	sp := strings.Repeat("  ", indent)

	switch n := node.(type) {
	case *ast.Program:
		var sb strings.Builder
		for i, e := range n.Elements {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(RenderASTAsText(e, 0))
		}
		return sb.String()

	case *ast.Quote:
		// the quote mark sits where the quoted element's indentation ends
		inner := RenderASTAsText(n.Element, indent)
		return sp + "'" + strings.TrimPrefix(inner, sp)

	case ast.Element:
		head, children := parts(n)
		if children == nil {
			return sp + n.String()
		}
		if allSimple(children) {
			words := append([]string{}, head...)
			for _, c := range children {
				words = append(words, RenderASTAsText(c, 0))
			}
			return sp + "(" + strings.Join(words, " ") + ")"
		}
		var sb strings.Builder
		sb.WriteString(sp + "(" + strings.Join(head, " "))
		for _, c := range children {
			sb.WriteString("\n")
			sb.WriteString(RenderASTAsText(c, indent+1))
		}
		sb.WriteString(")")
		return sb.String()
	}

	return fmt.Sprintf("%s<%T>", sp, node)
}

// parts splits a form into the words printed on its opening line and the
// child elements. Leaves have no children.
func parts(el ast.Element) ([]string, []ast.Element) {
	switch n := el.(type) {
	case *ast.List:
		if len(n.Elements) == 0 {
			return nil, nil
		}
		if isLeaf(n.Elements[0]) {
			return []string{n.Elements[0].String()}, nonNil(n.Elements[1:])
		}
		return nil, n.Elements
	case *ast.SetQ:
		return []string{"setq", n.Assignee.Value}, []ast.Element{n.Value}
	case *ast.Func:
		return []string{"func", n.Name.Value, ast.ParameterList(n.Parameters)}, []ast.Element{n.Body}
	case *ast.Lambda:
		return []string{"lambda", ast.ParameterList(n.Parameters)}, []ast.Element{n.Body}
	case *ast.Prog:
		return []string{"prog", ast.ParameterList(n.Parameters)}, []ast.Element{n.Body}
	case *ast.Cond:
		children := []ast.Element{n.Condition, n.TrueArgument}
		if n.FalseArgument != nil {
			children = append(children, n.FalseArgument)
		}
		return []string{"cond"}, children
	case *ast.While:
		return []string{"while"}, []ast.Element{n.Condition, n.Body}
	case *ast.Return:
		return []string{"return"}, []ast.Element{n.Value}
	}
	return nil, nil
}

func nonNil(elements []ast.Element) []ast.Element {
	if elements == nil {
		return []ast.Element{}
	}
	return elements
}

func isLeaf(el ast.Element) bool {
	if q, ok := el.(*ast.Quote); ok {
		return isLeaf(q.Element)
	}
	_, children := parts(el)
	return children == nil
}

// allSimple reports whether every child is a leaf or a form of leaves.
func allSimple(children []ast.Element) bool {
	for _, c := range children {
		if q, ok := c.(*ast.Quote); ok {
			c = q.Element
		}
		if isLeaf(c) {
			continue
		}
		_, grand := parts(c)
		for _, g := range grand {
			if !isLeaf(g) {
				return false
			}
		}
	}
	return true
}

func WriteASTToText(node ast.Node, filename string) error {
	if err := os.WriteFile(filename, []byte(RenderASTAsText(node, 0)+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write AST text: %v", err)
	}
	return nil
}
