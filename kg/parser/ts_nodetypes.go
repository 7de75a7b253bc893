// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package parser

// tree-sitter-typescript node type names this parser walks. Named
// constants avoid magic strings scattered through the extraction code.
const (
	tsNodeProgram              = "program"
	tsNodeImportStatement      = "import_statement"
	tsNodeExportStatement      = "export_statement"
	tsNodeFunctionDeclaration  = "function_declaration"
	tsNodeGeneratorFunction    = "generator_function_declaration"
	tsNodeClassDeclaration     = "class_declaration"
	tsNodeInterfaceDeclaration = "interface_declaration"
	tsNodeTypeAliasDeclaration = "type_alias_declaration"
	tsNodeLexicalDeclaration   = "lexical_declaration"
	tsNodeVariableDeclaration  = "variable_declaration"
	tsNodeVariableDeclarator   = "variable_declarator"

	tsNodeString         = "string"
	tsNodeStringFragment = "string_fragment"
	tsNodeIdentifier     = "identifier"
	tsNodeTypeIdentifier = "type_identifier"
	tsNodePropertyID     = "property_identifier"

	tsNodeImportClause     = "import_clause"
	tsNodeNamespaceImport  = "namespace_import"
	tsNodeNamedImports     = "named_imports"
	tsNodeImportSpecifier  = "import_specifier"
	tsNodeExportClause     = "export_clause"
	tsNodeExportSpecifier  = "export_specifier"

	tsNodeClassHeritage    = "class_heritage"
	tsNodeExtendsClause    = "extends_clause"
	tsNodeImplementsClause = "implements_clause"
	tsNodeExtendsTypeClause = "extends_type_clause"

	tsNodeClassBody       = "class_body"
	tsNodeMethodDef       = "method_definition"
	tsNodePublicField     = "public_field_definition"
	tsNodeInterfaceBody   = "interface_body"
	tsNodePropertySig     = "property_signature"
	tsNodeMethodSig       = "method_signature"

	tsNodeFormalParameters = "formal_parameters"
	tsNodeRequiredParam    = "required_parameter"
	tsNodeOptionalParam    = "optional_parameter"

	tsNodeCallExpression       = "call_expression"
	tsNodeMemberExpression     = "member_expression"
	tsNodeNewExpression        = "new_expression"
	tsNodeAssignmentExpression = "assignment_expression"
	tsNodeAwaitExpression      = "await_expression"
	tsNodeThrowStatement       = "throw_statement"

	tsNodeTypeAnnotation = "type_annotation"
)
