package notify

import "fmt"

// confirmationBody renders the registrant confirmation in the site's
// terminal aesthetic. Returns HTML and plain-text variants.
func confirmationBody(position int64) (html, text string) {
	html = fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="background-color:#050505;color:#F8FAFC;font-family:'JetBrains Mono','SF Mono','Consolas',monospace;padding:40px;margin:0;">
  <div style="max-width:600px;margin:0 auto;">
    <div style="color:#00FF41;font-size:12px;letter-spacing:2px;margin-bottom:40px;">&gt; ARCHETYPE_CORE: TRANSMISSION</div>
    <div style="font-size:24px;font-weight:bold;margin-bottom:20px;">PROTOCOL INITIATED</div>
    <div style="font-size:14px;line-height:1.8;color:#A0A0A0;">
      Your request has been received and logged.<br><br>
      You have been added to the access queue for THE ALCHEMIST.<br>
      Stand by for further instructions.
    </div>
    <div style="background:#0A0A0A;border:1px solid #333;border-radius:8px;padding:24px;margin:30px 0;text-align:center;">
      <div style="font-size:11px;color:#666;letter-spacing:2px;margin-bottom:8px;">YOUR QUEUE POSITION</div>
      <div style="font-size:48px;font-weight:bold;color:#00FF41;">#%d</div>
    </div>
    <div style="font-size:14px;line-height:1.8;color:#A0A0A0;">
      <span style="background:#0A2A0A;color:#00FF41;padding:4px 12px;border-radius:4px;font-size:11px;">STATUS: PENDING</span><br><br>
      You will be notified when access is granted.<br>
      Do not reply to this transmission.
    </div>
    <div style="margin-top:40px;padding-top:20px;border-top:1px solid #222;font-size:11px;color:#444;">
      ARCHETYPE ORIGIN DYNAMICS INC.
    </div>
  </div>
</body>
</html>`, position)

	text = fmt.Sprintf(`ARCHETYPE ORIGIN DYNAMICS
> PROTOCOL INITIATED

Your request has been received and logged.
You have been added to the access queue for THE ALCHEMIST.

YOUR QUEUE POSITION: #%d

STATUS: PENDING
You will be notified when access is granted.
Do not reply to this transmission.
`, position)

	return html, text
}
