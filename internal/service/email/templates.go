package email

const settlementTemplate = `
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #16a34a;">Trade Settled</h2>
    <p>Trade <strong>#{{.TradeID}}</strong> has been settled.</p>
    <table style="width: 100%; border-collapse: collapse;">
        <tr><td style="padding: 6px; color: #6b7280;">Seller</td><td style="padding: 6px;">{{.Seller}}</td></tr>
        <tr><td style="padding: 6px; color: #6b7280;">Buyer</td><td style="padding: 6px;">{{.Buyer}}</td></tr>
        <tr><td style="padding: 6px; color: #6b7280;">Energy</td><td style="padding: 6px;">{{.EnergyAmount}} kWh</td></tr>
        <tr><td style="padding: 6px; color: #6b7280;">Total</td><td style="padding: 6px;">{{.TotalPrice}}</td></tr>
        <tr><td style="padding: 6px; color: #6b7280;">Region</td><td style="padding: 6px;">{{.Region}}</td></tr>
    </table>
    <p style="font-size: 12px; color: #6b7280;">This is an automated message. Please do not reply.</p>
</body>
</html>
`

const certificatesTemplate = `
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #16a34a;">Certificates Issued</h2>
    <p><strong>{{.Count}}</strong> renewable energy certificate(s) were issued for your verified {{.Source}} production.</p>
    <ul>
    {{range .Certs}}
        <li>Certificate #{{.ID}} &mdash; {{.EnergyAmount}} kWh ({{.EnergySource}}, {{.Location}})</li>
    {{end}}
    </ul>
    <p style="font-size: 12px; color: #6b7280;">This is an automated message. Please do not reply.</p>
</body>
</html>
`
