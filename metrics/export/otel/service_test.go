package otel

import (
	"context"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/social"
)

type nopService struct{}

func (nopService) Login(context.Context, string, string, authflow.LoginOptions) (authflow.AuthResult, error) {
	return authflow.AuthResult{}, nil
}

func (nopService) Signup(context.Context, authflow.SignupPayload) (authflow.AuthResult, error) {
	return authflow.AuthResult{}, nil
}

func (nopService) SocialLogin(context.Context, social.Name, string) (authflow.AuthResult, error) {
	return authflow.AuthResult{}, nil
}
