// Package ctoken is the read-only token and AST model the engine walks.
//
// A Stream holds one translation unit's tokens in an arena, linked by
// Next/Prev (lexical order), AstParent/AstOperand1/AstOperand2 (expression
// trees), and Link (matching bracket/if-else pairs). Resolved identifiers
// carry a VariableID; resolved types carry a TypeID. All lookups are O(1)
// index operations into the arena.
//
// Tokens are created by a Builder and frozen once built: nothing in this
// package mutates a Token after the Stream is returned, which is what lets
// internal/valueflow treat the topology as fixed while it explores multiple
// value-flow states per token.
package ctoken
