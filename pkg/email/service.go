// pkg/email/service.go
package email

var GlobalEmailService *EmailService

func InitEmailService(apiKey string, opts ...Option) error {
	service, err := NewEmailService(apiKey, opts...)
	if err != nil {
		return err
	}
	GlobalEmailService = service
	return nil
}
