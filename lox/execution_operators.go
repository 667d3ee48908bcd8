package lox

func (exec *Execution) evalUnary(expr *UnaryExpr, env *Env) (Value, error) {
	right, err := exec.evalExpression(expr.Right, env)
	if err != nil {
		return NewNil(), err
	}
	switch expr.Operator {
	case tokenMinus:
		if right.Kind() != KindNumber {
			return NewNil(), exec.typedErrorAt(ErrTypeError, expr.Pos(), "operand must be a number, got %s", right.Kind())
		}
		return NewNumber(-right.Number()), nil
	case tokenBang:
		return NewBool(!right.Truthy()), nil
	default:
		return NewNil(), exec.errorAt(expr.Pos(), "unsupported unary operator %s", expr.Operator)
	}
}

func (exec *Execution) evalBinary(expr *BinaryExpr, env *Env) (Value, error) {
	left, err := exec.evalExpression(expr.Left, env)
	if err != nil {
		return NewNil(), err
	}
	right, err := exec.evalExpression(expr.Right, env)
	if err != nil {
		return NewNil(), err
	}

	switch expr.Operator {
	case tokenEQ:
		return NewBool(left.Equal(right)), nil
	case tokenNotEQ:
		return NewBool(!left.Equal(right)), nil
	case tokenPlus:
		if left.Kind() == KindNumber && right.Kind() == KindNumber {
			return NewNumber(left.Number() + right.Number()), nil
		}
		if left.Kind() == KindString && right.Kind() == KindString {
			return NewString(left.Str() + right.Str()), nil
		}
		return NewNil(), exec.typedErrorAt(ErrTypeError, expr.Pos(), "operands must be two numbers or two strings, got %s and %s", left.Kind(), right.Kind())
	}

	if left.Kind() != KindNumber || right.Kind() != KindNumber {
		return NewNil(), exec.typedErrorAt(ErrTypeError, expr.Pos(), "operands of '%s' must be numbers, got %s and %s", expr.Operator, left.Kind(), right.Kind())
	}
	l, r := left.Number(), right.Number()
	switch expr.Operator {
	case tokenMinus:
		return NewNumber(l - r), nil
	case tokenStar:
		return NewNumber(l * r), nil
	case tokenSlash:
		return NewNumber(l / r), nil
	case tokenGT:
		return NewBool(l > r), nil
	case tokenGTE:
		return NewBool(l >= r), nil
	case tokenLT:
		return NewBool(l < r), nil
	case tokenLTE:
		return NewBool(l <= r), nil
	default:
		return NewNil(), exec.errorAt(expr.Pos(), "unsupported operator %s", expr.Operator)
	}
}
