package gateway

import (
	"encoding/xml"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	awsiam "github.com/aws/aws-sdk-go/service/iam"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/google/uuid"
	"github.com/mulgadc/mockcloud/mockcloud/awserrors"
	"github.com/mulgadc/mockcloud/mockcloud/iam"
	"github.com/mulgadc/mockcloud/mockcloud/iam/policy"
	"github.com/nats-io/nats.go"
)

type GatewayConfig struct {
	Debug          bool       `json:"debug"`
	DisableLogging bool       `json:"disable_logging"`
	NATSConn       *nats.Conn // Shared NATS connection for service communication
	Region         string     // Region this gateway is running in

	IAMService iam.Service    // Backing IAM store
	Engine     *policy.Engine // Policy evaluation engine over IAMService
}

var supportedServices = map[string]bool{
	"iam": true,
}

// ErrorResponse is the IAM query-protocol error document.
type ErrorResponse struct {
	XMLName   xml.Name    `xml:"ErrorResponse"`
	Error     ErrorDetail `xml:"Error"`
	RequestID string      `xml:"RequestId"`
}

type ErrorDetail struct {
	Type    string `xml:"Type"`
	Code    string `xml:"Code"`
	Message string `xml:"Message"`
}

func (gw *GatewayConfig) SetupRoutes() *fiber.App {

	var logLevel slog.Level

	if gw.Debug {
		logLevel = slog.LevelDebug
	} else if gw.DisableLogging {
		logLevel = slog.LevelError
	} else {
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	slog.SetDefault(slog.New(handler))

	app := fiber.New(fiber.Config{

		// Disable the startup banner
		DisableStartupMessage: gw.DisableLogging,

		// Override default error handler
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			return gw.ErrorHandler(ctx, err)
		}},
	)

	if !gw.DisableLogging {
		app.Use(logger.New())
	}

	// Add CORS middleware for browser requests
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "https://localhost:3000",
		AllowMethods:     "GET,POST,PUT,DELETE,HEAD,OPTIONS",
		AllowHeaders:     "*",
		AllowCredentials: true,
	}))

	// Add AWS SigV4 authentication middleware
	app.Use(gw.SigV4AuthMiddleware())

	app.Get("/*", func(c *fiber.Ctx) error {
		return gw.Request(c)
	})

	app.Post("/*", func(c *fiber.Ctx) error {
		return gw.Request(c)
	})

	return app
}

// Custom endpoints can be configured via ENV vars to the AWS SDK/CLI tool:
// AWS_ENDPOINT_URL=https://localhost:9999/ aws --no-verify-ssl iam list-users

func (gw *GatewayConfig) Request(ctx *fiber.Ctx) error {

	svc, err := gw.GetService(ctx)
	slog.Info("Request", "service", svc, "method", ctx.Method(), "path", ctx.Path())

	if err != nil {
		slog.Error("GetService error", "error", err)
		return gw.ErrorHandler(ctx, err)
	}

	switch svc {
	case "iam":
		err = gw.IAM_Request(ctx)
	default:
		err = errors.New("UnsupportedOperation")
	}

	if err != nil {
		slog.Error("Service request error", "service", svc, "error", err)
		return gw.ErrorHandler(ctx, err)
	}

	slog.Info("Service request completed", "service", svc)
	return nil

}

func (gw *GatewayConfig) GetService(ctx *fiber.Ctx) (string, error) {
	svc, ok := ctx.Locals("sigv4.service").(string)
	if !ok {
		return "", errors.New(awserrors.ErrorAuthFailure)
	}
	if !supportedServices[svc] {
		slog.Debug("Unsupported service", "service", svc)
		return "", errors.New("UnsupportedOperation")
	}
	return svc, nil
}

// checkPolicy enforces the caller's IAM policies for a gateway action.
// Root credentials bypass evaluation; everyone else gets the default-deny
// treatment unless an attached policy allows the action.
func (gw *GatewayConfig) checkPolicy(ctx *fiber.Ctx, service, action string) error {
	identity, _ := ctx.Locals("sigv4.identity").(string)
	accountID, _ := ctx.Locals("sigv4.accountID").(string)
	if identity == "" || accountID == "" {
		return errors.New(awserrors.ErrorAuthFailure)
	}

	actionName, ok := policy.LookupAction(service, action)
	if !ok {
		return errors.New(awserrors.ErrorInvalidAction)
	}

	result, err := gw.Engine.CheckPermission(accountID, &policy.Request{
		Principal:    identity,
		PrincipalARN: gw.principalARN(accountID, identity),
		Action:       actionName,
		Resource:     "*",
		Context: policy.Context{
			"aws:SourceIp": ctx.IP(),
			"aws:username": identity,
		},
	})
	if err != nil {
		return err
	}
	if !result.Allowed {
		slog.Debug("Policy denied request", "identity", identity, "action", actionName, "reason", result.Reason)
		return errors.New(awserrors.ErrorAccessDenied)
	}
	return nil
}

// principalARN resolves the caller's ARN for resource-policy matching,
// falling back to the default-path form when the user is not resolvable.
func (gw *GatewayConfig) principalARN(accountID, userName string) string {
	if userName == iam.RootUserName {
		return "arn:aws:iam::" + accountID + ":root"
	}
	out, err := gw.IAMService.GetUser(accountID, &awsiam.GetUserInput{UserName: aws.String(userName)})
	if err == nil && out.User != nil && out.User.Arn != nil {
		return *out.User.Arn
	}
	return "arn:aws:iam::" + accountID + ":user/" + userName
}

func (gw *GatewayConfig) ErrorHandler(ctx *fiber.Ctx, err error) error {

	svc, _ := gw.GetService(ctx)

	// AWSError carries a per-request detail message; bare errors carry
	// only the code.
	var detail string
	var awsErr *awserrors.AWSError
	if errors.As(err, &awsErr) {
		detail = awsErr.Detail
		err = errors.New(awsErr.Code)
	}

	slog.Debug("ErrorHandler", "service", svc, "error", err.Error(), "detail", detail)

	var requestId = uuid.NewString()
	requestId = ctx.Get("x-amz-request-id", requestId)

	// Check if the error lookup exists
	if _, exists := awserrors.ErrorLookup[err.Error()]; !exists {
		slog.Warn("Unknown error code", "error", err.Error())
		err = errors.New("InternalError")
	}

	errorMsg := awserrors.ErrorLookup[err.Error()]
	if detail == "" {
		detail = errorMsg.Message
	}
	if errorMsg.HTTPCode == 0 {
		errorMsg.HTTPCode = 500
	}

	xmlError := GenerateIAMErrorResponse(err.Error(), detail, requestId, errorMsg.HTTPCode)

	ctx.Set("Content-Type", "application/xml")
	return ctx.Status(errorMsg.HTTPCode).Send(xmlError)
}

// Parse AWS query arguments from a form-encoded body.
// Properly URL-decodes both keys and values
func ParseAWSQueryArgs(query string) map[string]string {
	params := make(map[string]string)
	pairs := strings.SplitSeq(query, "&")
	for pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) == 2 {
			key, _ := url.QueryUnescape(kv[0])
			value, _ := url.QueryUnescape(kv[1])
			params[key] = value
		} else if len(kv) == 1 {
			key, _ := url.QueryUnescape(kv[0])
			params[key] = ""
		}
	}
	return params
}

func GenerateIAMErrorResponse(code, message, requestID string, httpCode int) (output []byte) {

	errorType := "Sender"
	if httpCode >= 500 {
		errorType = "Receiver"
	}

	errorXml := ErrorResponse{
		Error: ErrorDetail{
			Type:    errorType,
			Code:    code,
			Message: message,
		},
		RequestID: requestID,
	}

	output, err := xml.MarshalIndent(errorXml, "", "  ")

	if err != nil {
		slog.Error("Failed to build XML", "error", err)
		return nil
	}

	// Add XML header
	output = append([]byte(xml.Header), output...)

	return output
}
