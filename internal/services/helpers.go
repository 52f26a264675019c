package services

import (
	"github.com/vanbook/backend/internal/config"
	"github.com/vanbook/backend/internal/utils"
)

// generateVerifyCode produces the numeric OTP sent by SMS.
func generateVerifyCode() string {
	return utils.RandomNumericString(config.VerifyCodeLength)
}

// generateURLCode produces the opaque code embedded in password reset/setup
// links.
func generateURLCode() string {
	return utils.RandomString(config.URLCodeLength)
}

// verifySMSBody is the SMS text carrying the numeric OTP.
func verifySMSBody(code string) string {
	return "Your " + config.OrganizationName + " verification code is " + code
}

// passwordEmailHTML is the branded template for reset/setup password links.
const passwordEmailHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Arial, sans-serif; line-height: 1.6; color: #333; background-color: #f8f9fa; margin: 0; padding: 20px; }
  .container { max-width: 500px; margin: auto; background: #ffffff; border: 1px solid #e9ecef; border-radius: 8px; overflow: hidden; }
  .header { background-color: #1d3557; color: white; padding: 20px; text-align: center; }
  .header h1 { margin: 0; font-size: 24px; }
  .content { padding: 30px; text-align: center; }
  .button { display: inline-block; background-color: #1d3557; color: #ffffff; padding: 12px 28px; border-radius: 5px; text-decoration: none; margin: 20px 0; }
  .footer { background-color: #f8f9fa; padding: 20px; text-align: center; font-size: 12px; color: #6c757d; }
</style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>%s</h1>
    </div>
    <div class="content">
      <p>Hi %s,</p>
      <p>%s</p>
      <a class="button" href="%s">%s</a>
      <p>If you did not request this, you can safely ignore this email.</p>
    </div>
    <div class="footer">
      © %d Vanbook. All rights reserved.
    </div>
  </div>
</body>
</html>`
